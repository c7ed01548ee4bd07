// Package probe implements cluster.Prober against the ffprobe binary,
// the CLI's concrete answer to the probing seam mediainfo and cluster
// deliberately leave abstract.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
)

// FFProbe shells out to ffprobe and parses its JSON stream report.
type FFProbe struct {
	Path    string // path to the ffprobe binary
	Timeout time.Duration
}

// New constructs an FFProbe using ffprobePath, defaulting Timeout to 30s.
func New(ffprobePath string) *FFProbe {
	return &FFProbe{Path: ffprobePath, Timeout: 30 * time.Second}
}

type ffprobeDisposition struct {
	Default int `json:"default"`
}

type ffprobeStream struct {
	Index        int                 `json:"index"`
	CodecType    string              `json:"codec_type"`
	CodecName    string              `json:"codec_name"`
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	PixFmt       string              `json:"pix_fmt"`
	RFrameRate   string              `json:"r_frame_rate"`
	Duration     string              `json:"duration"`
	Disposition  ffprobeDisposition  `json:"disposition"`
	Tags         map[string]string   `json:"tags"`
}

type ffprobeReport struct {
	Streams []ffprobeStream `json:"streams"`
}

// Probe runs ffprobe against path and assembles a MediaInfo from its
// stream report, taking the first video stream found, every audio stream,
// and every subtitle stream, matching the original tool's ffprobe path
// (see original_source media.py parse_ffprobe_details_json).
func (p *FFProbe) Probe(path string) (*mediainfo.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Path, "-v", "quiet", "-print_format", "json", "-show_streams", path)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	var report ffprobeReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("probe %s: parsing ffprobe output: %w", path, err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	mi := &mediainfo.MediaInfo{Path: path, FileSizeBytes: fi.Size()}

	foundVideo := false
	for _, s := range report.Streams {
		switch s.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			mi.VideoStream = strconv.Itoa(s.Index)
			mi.VideoCodec = s.CodecName
			mi.Width = s.Width
			mi.Height = s.Height
			mi.ColorSpace = s.PixFmt
			mi.FPS = parseFrameRate(s.RFrameRate)
			mi.RuntimeSeconds = parseDuration(s)
			if frames, ok := s.Tags["NUMBER_OF_FRAMES"]; ok {
				if n, err := strconv.Atoi(frames); err == nil {
					mi.Frames = n
				}
			}
		case "audio":
			a := mediainfo.StreamInfo{
				Index:   strconv.Itoa(s.Index),
				Format:  s.CodecName,
				Default: s.Disposition.Default != 0,
			}
			a.Language = streamLanguage(s.Tags)
			if bytesStr, ok := s.Tags["NUMBER_OF_BYTES"]; ok {
				if n, err := strconv.ParseInt(bytesStr, 10, 64); err == nil {
					a.SizeBytes = n
				}
			}
			if mi.RuntimeSeconds == 0 {
				mi.RuntimeSeconds = parseDuration(s)
			}
			mi.Audio = append(mi.Audio, a)
		case "subtitle", "subrip":
			sub := mediainfo.StreamInfo{
				Index:   strconv.Itoa(s.Index),
				Format:  s.CodecName,
				Default: s.Disposition.Default != 0,
			}
			sub.Language = streamLanguage(s.Tags)
			mi.Subtitle = append(mi.Subtitle, sub)
		}
	}

	return mi, nil
}

func parseFrameRate(raw string) int {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.Atoi(parts[0])
	den, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func parseDuration(s ffprobeStream) int {
	if s.Duration != "" {
		if f, err := strconv.ParseFloat(s.Duration, 64); err == nil {
			return int(f)
		}
	}
	for name, value := range s.Tags {
		if strings.HasPrefix(name, "DURATION") {
			if secs, ok := parseHMS(value); ok {
				return secs
			}
		}
	}
	return 0
}

func parseHMS(value string) (int, bool) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.ParseFloat(parts[0], 64)
	m, err2 := strconv.ParseFloat(parts[1], 64)
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return int(h)*3600 + int(m)*60 + int(sec), true
}

func streamLanguage(tags map[string]string) string {
	if lang, ok := tags["language"]; ok {
		return lang
	}
	for name := range tags {
		if strings.HasPrefix(name, "DURATION-") {
			return strings.TrimPrefix(name, "DURATION-")
		}
	}
	return "und"
}
