// Package config models the already-parsed cluster configuration object the
// scheduler is constructed from: the shape of the parsed result and its
// validation, plus a YAML loader (yaml.go) that builds it from a file.
package config

import (
	"fmt"

	"github.com/mlsmithjr/wandarr-go/internal/template"
)

// HostType is the variant tag on a host descriptor.
type HostType string

// Host variants recognized by a host descriptor.
const (
	HostLocal     HostType = "local"
	HostMounted   HostType = "mounted"
	HostStreaming HostType = "streaming"
	HostAgent     HostType = "agent"
)

// OSFamily drives path quoting and delete syntax for remote hosts.
type OSFamily string

// Supported OS families.
const (
	OSLinux   OSFamily = "linux"
	OSMacOS   OSFamily = "macos"
	OSWindows OSFamily = "windows"
	OSWin10   OSFamily = "win10"
)

// PathSubstitution is one (src-prefix, dst-prefix) rewrite rule.
type PathSubstitution struct {
	SrcPrefix string
	DstPrefix string
}

// HostConfig is one cluster member.
type HostConfig struct {
	Name              string
	Type              HostType
	Address           string // network address ("ip" in the original config)
	User              string
	OS                OSFamily
	WorkingDir        string
	FFmpegPath        string
	PathSubstitutions []PathSubstitution
	Enabled           bool
	Engines           []string // engine names this host exposes
}

// HasPathSubstitutions reports whether this host rewrites paths for a
// remote mount.
func (h *HostConfig) HasPathSubstitutions() bool {
	return len(h.PathSubstitutions) > 0
}

// SubstitutePaths applies the first matching path-substitution rule to both
// the input and output path: "first rule matching a prefix
// wins". Paths are returned unchanged if no rule matches.
func (h *HostConfig) SubstitutePaths(inPath, outPath string) (string, string) {
	for _, rule := range h.PathSubstitutions {
		if len(inPath) >= len(rule.SrcPrefix) && inPath[:len(rule.SrcPrefix)] == rule.SrcPrefix {
			in := rule.DstPrefix + inPath[len(rule.SrcPrefix):]
			out := outPath
			if len(outPath) >= len(rule.SrcPrefix) && outPath[:len(rule.SrcPrefix)] == rule.SrcPrefix {
				out = rule.DstPrefix + outPath[len(rule.SrcPrefix):]
			}
			return in, out
		}
	}
	return inPath, outPath
}

// IsWindows reports whether this host's OS family is Windows.
func (h *HostConfig) IsWindows() bool {
	return h.OS == OSWindows || h.OS == OSWin10
}

// Validate checks the required settings for this host's type: mounted and
// streaming hosts require address, user, and OS; streaming additionally
// requires a working directory. It does not look at Enabled; it is
// ClusterConfig.Validate that skips disabled hosts.
func (h *HostConfig) Validate() error {
	var errs []string
	if h.Type == "" {
		errs = append(errs, `missing "type"`)
	}
	switch h.Type {
	case HostMounted, HostStreaming:
		if h.Address == "" {
			errs = append(errs, `missing "address"`)
		}
		if h.User == "" {
			errs = append(errs, `missing "user"`)
		}
		switch h.OS {
		case OSMacOS, OSLinux, OSWindows, OSWin10:
		default:
			errs = append(errs, fmt.Sprintf("unsupported \"os\" type %q", h.OS))
		}
	}
	if h.Type == HostStreaming && h.WorkingDir == "" {
		errs = append(errs, `missing "working_dir"`)
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation error(s) for host %q: %v", h.Name, errs)
	}
	return nil
}

// EngineConfig is a named collection of quality presets.
type EngineConfig struct {
	Name      string
	Qualities map[string]string // quality key -> encoder CLI fragment
}

// ClusterConfig is the fully parsed configuration object the scheduler is
// built from.
type ClusterConfig struct {
	FFmpegPath string
	SSHPath    string
	SCPPath    string
	AgentPort  int
	Rich       bool

	Hosts     map[string]*HostConfig
	Engines   map[string]*EngineConfig
	Templates map[string]*template.Template
}

// Engine looks up an engine by name.
func (c *ClusterConfig) Engine(name string) *EngineConfig {
	return c.Engines[name]
}

// GetTemplate looks up a template by name.
func (c *ClusterConfig) GetTemplate(name string) *template.Template {
	return c.Templates[name]
}

// Validate checks ffmpeg path presence and validates every host and
// template. A validation failure here is fatal to the process.
func (c *ClusterConfig) Validate() error {
	if c.FFmpegPath == "" {
		return fmt.Errorf("config: missing required \"ffmpeg\" path")
	}
	if len(c.Hosts) == 0 {
		return fmt.Errorf("config: no cluster hosts defined")
	}
	for name, h := range c.Hosts {
		if h.Name == "" {
			h.Name = name
		}
		if !h.Enabled {
			continue
		}
		if err := h.Validate(); err != nil {
			return err
		}
	}
	for name, t := range c.Templates {
		if t.Name == "" {
			t.Name = name
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}
