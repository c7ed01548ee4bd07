// Package mediainfo holds the parsed result of an external media probe.
//
// Probing itself is out of scope for this package; callers construct a
// MediaInfo from whatever probe tool they use (internal/probe wraps
// ffprobe) and pass it in. This package
// only models the record and the handful of derived queries the scheduler
// and template layers need.
package mediainfo

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// StreamInfo describes one audio or subtitle stream of a probed file.
type StreamInfo struct {
	Index     string // encoder stream index, e.g. "1"
	Language  string // ISO-ish language code, "und" if unknown
	Format    string // codec name
	Default   bool   // default-disposition flag
	SizeBytes int64  // 0 if unknown
}

// MediaInfo is the immutable per-file probe result.
type MediaInfo struct {
	Path           string
	VideoStream    string // encoder stream index of the video stream
	VideoCodec     string
	Width          int
	Height         int
	FPS            int
	ColorSpace     string
	RuntimeSeconds int // 0 if unknown
	Frames         int // may be 0 if the probe tool didn't report it
	FileSizeBytes  int64
	Audio          []StreamInfo
	Subtitle       []StreamInfo
}

// IsMultistream reports whether the file carries more than one audio or
// subtitle track, the condition under which stream mapping becomes
// meaningful.
func (m *MediaInfo) IsMultistream() bool {
	return len(m.Audio) > 1 || len(m.Subtitle) > 1
}

// String renders a one-line human summary, matching the original tool's
// plain-text `show-info` output.
func (m *MediaInfo) String() string {
	runtime := (time.Duration(m.RuntimeSeconds) * time.Second).String()

	audios := make([]string, 0, len(m.Audio))
	for _, a := range m.Audio {
		line := a.Language
		if a.Default {
			line += "*"
		}
		line += "," + a.Format
		if a.SizeBytes > 0 {
			line += fmt.Sprintf(", %dmb", a.SizeBytes/(1024*1024))
		}
		audios = append(audios, line)
	}

	subs := make([]string, 0, len(m.Subtitle))
	for _, s := range m.Subtitle {
		line := s.Language
		if s.Default {
			line += "*"
		}
		subs = append(subs, line)
	}

	return fmt.Sprintf("%s, %dmb, %d fps, %dx%d, %s, %s, audio=(%s), sub=(%s)",
		m.Path, m.FileSizeBytes/(1024*1024), m.FPS, m.Width, m.Height, runtime, m.VideoCodec,
		strings.Join(audios, ","), strings.Join(subs, ","))
}

// ShowInfo writes a plain tabular summary of several probed files to w. A
// rich/colorized renderer is the CLI collaborator's concern; this is the
// plain fallback used when rich output is disabled.
func ShowInfo(w io.Writer, infos []*MediaInfo) {
	for _, mi := range infos {
		if mi == nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%-30s %s\n", filepath.Base(mi.Path), mi.String())
	}
}
