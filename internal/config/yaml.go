package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlsmithjr/wandarr-go/internal/template"
)

// yamlDocument mirrors the top-level sections of the wandarr config file:
// config, cluster, engines, templates.
type yamlDocument struct {
	Config struct {
		FFmpeg string `yaml:"ffmpeg"`
		SSH    string `yaml:"ssh"`
		SCP    string `yaml:"scp"`
		Port   int    `yaml:"agent_port"`
		Rich   *bool  `yaml:"rich"`
	} `yaml:"config"`

	Cluster map[string]struct {
		Type              string   `yaml:"type"`
		Address           string   `yaml:"ip"`
		User              string   `yaml:"user"`
		OS                string   `yaml:"os"`
		WorkingDir        string   `yaml:"working_dir"`
		FFmpeg            string   `yaml:"ffmpeg"`
		Status            string   `yaml:"status"`
		Engines           []string `yaml:"engines"`
		PathSubstitutions []string `yaml:"path-substitutions"`
	} `yaml:"cluster"`

	Engines map[string]struct {
		Quality map[string]string `yaml:"quality"`
	} `yaml:"engines"`

	Templates map[string]struct {
		CLI struct {
			InputOptions []string `yaml:"input-options"`
			Audio        string   `yaml:"audio"`
			Subtitles    string   `yaml:"subtitles"`
		} `yaml:"cli"`
		Extension      string `yaml:"extension"`
		VideoQuality   string `yaml:"video-quality"`
		AudioLang      string `yaml:"audio-lang"`
		SubtitleLang   string `yaml:"subtitle-lang"`
		Threshold      int    `yaml:"threshold"`
		ThresholdCheck int    `yaml:"threshold_check"`
	} `yaml:"templates"`
}

// splitLangs parses a space- or comma-separated language list, returning an
// empty (not nil-but-with-one-blank-entry) slice when the field is unset.
func splitLangs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, " ") {
		sep = " "
	}
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads and decodes a YAML configuration file into a ClusterConfig.
// The wandarr CLI calls it to load the cluster config file.
func Load(path string) (*ClusterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document's bytes into a ClusterConfig.
func Parse(data []byte) (*ClusterConfig, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &ClusterConfig{
		FFmpegPath: doc.Config.FFmpeg,
		SSHPath:    doc.Config.SSH,
		SCPPath:    doc.Config.SCP,
		AgentPort:  doc.Config.Port,
		Rich:       true,
		Hosts:      make(map[string]*HostConfig, len(doc.Cluster)),
		Engines:    make(map[string]*EngineConfig, len(doc.Engines)),
		Templates:  make(map[string]*template.Template, len(doc.Templates)),
	}
	if doc.Config.Rich != nil {
		cfg.Rich = *doc.Config.Rich
	}
	if cfg.SSHPath == "" {
		cfg.SSHPath = "/usr/bin/ssh"
	}
	if cfg.SCPPath == "" {
		cfg.SCPPath = "/usr/bin/scp"
	}

	for name, h := range doc.Cluster {
		enabled := h.Status == "" || h.Status == "enabled"
		subs := make([]PathSubstitution, 0, len(h.PathSubstitutions))
		for _, rule := range h.PathSubstitutions {
			fields := strings.Fields(rule)
			if len(fields) == 2 {
				subs = append(subs, PathSubstitution{SrcPrefix: fields[0], DstPrefix: fields[1]})
			}
		}
		cfg.Hosts[name] = &HostConfig{
			Name:              name,
			Type:              HostType(h.Type),
			Address:           h.Address,
			User:              h.User,
			OS:                OSFamily(h.OS),
			WorkingDir:        h.WorkingDir,
			FFmpegPath:        h.FFmpeg,
			PathSubstitutions: subs,
			Enabled:           enabled,
			Engines:           h.Engines,
		}
	}

	for name, e := range doc.Engines {
		cfg.Engines[name] = &EngineConfig{Name: name, Qualities: e.Quality}
	}

	for name, t := range doc.Templates {
		cfg.Templates[name] = &template.Template{
			Name:              name,
			InputOptions:      t.CLI.InputOptions,
			AudioOptions:      t.CLI.Audio,
			SubtitleOptions:   t.CLI.Subtitles,
			Extension:         t.Extension,
			Quality:           t.VideoQuality,
			AudioLanguages:    splitLangs(t.AudioLang),
			SubtitleLanguages: splitLangs(t.SubtitleLang),
			Threshold:         t.Threshold,
			ThresholdCheckPct: t.ThresholdCheck,
		}
	}

	return cfg, nil
}
