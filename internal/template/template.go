// Package template models a transcode job recipe: the encoder options,
// stream language filters, output container, and savings threshold that
// together describe how one quality preset should be applied to a file.
package template

import (
	"fmt"
	"strings"

	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
)

// Template is a named job recipe.
type Template struct {
	Name              string
	InputOptions      []string
	AudioOptions      string
	SubtitleOptions   string
	Extension         string
	Quality           string
	AudioLanguages    []string
	SubtitleLanguages []string
	Threshold         int // percent savings required to keep the output, 0 disables
	ThresholdCheckPct int // percent complete at which mid-flight veto is first evaluated
}

// Validate checks the required fields are present: extension and quality
// are required, language lists may be empty.
func (t *Template) Validate() error {
	if t.Extension == "" {
		return fmt.Errorf("template %q: missing required \"extension\"", t.Name)
	}
	if t.Quality == "" {
		return fmt.Errorf("template %q: missing required \"video-quality\"", t.Name)
	}
	return nil
}

// InputOptionsList returns the encoder input-options fragment as already
// tokenized arguments.
func (t *Template) InputOptionsList() []string {
	return t.InputOptions
}

// OutputOptionsList returns the audio and subtitle option fragments,
// tokenized on whitespace in the order audio, subtitle.
func (t *Template) OutputOptionsList() []string {
	opts := make([]string, 0, 4)
	if t.AudioOptions != "" {
		opts = append(opts, strings.Fields(t.AudioOptions)...)
	}
	if t.SubtitleOptions != "" {
		opts = append(opts, strings.Fields(t.SubtitleOptions)...)
	}
	return opts
}

// ThresholdCheck returns the percent-complete at which mid-flight
// compression is first evaluated, defaulting to 100 (never) when unset.
func (t *Template) ThresholdCheck() int {
	if t.ThresholdCheckPct == 0 {
		return 100
	}
	return t.ThresholdCheckPct
}

func containsLang(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// mapStreams implements the per-kind half of StreamMap (audio "a" or
// subtitle "s"): a stream is mapped when its language is unknown (und/???)
// or explicitly named in includes. When a screened-out stream carried the
// default disposition, the first mapped stream whose language matches the
// first entry of includes is promoted to default in its place.
func mapStreams(kind string, streams []mediainfo.StreamInfo, includes []string) []string {
	seq := make([]string, 0, len(streams)*2)
	mapped := make([]mediainfo.StreamInfo, 0, len(streams))
	defaultReassign := false

	for _, s := range streams {
		lang := s.Language
		known := lang == "und" || lang == "???"
		if !known && !containsLang(includes, lang) {
			if s.Default {
				defaultReassign = true
			}
			continue
		}
		mapped = append(mapped, s)
		seq = append(seq, "-map", fmt.Sprintf("0:%s", s.Index))
	}

	if defaultReassign && len(includes) > 0 {
		newDefaultLang := includes[0]
		for i, s := range mapped {
			if s.Language == newDefaultLang {
				seq = append(seq, fmt.Sprintf("-disposition:%s:%d", kind, i), "default")
				break
			}
		}
	}

	return seq
}

// StreamMap builds the `-map` argument list.
//
// If both audio and subtitle language filters are empty, every stream is
// passed through with a bare "-map 0". Otherwise the video stream plus any
// audio/subtitle stream whose language is unknown or explicitly included is
// mapped; if filtering would leave zero audio streams mapped, an empty
// slice is returned and the caller must interpret that as "skip this file".
func (t *Template) StreamMap(videoStream string, audio, subtitle []mediainfo.StreamInfo) []string {
	if len(t.AudioLanguages) == 0 && len(t.SubtitleLanguages) == 0 {
		return []string{"-map", "0"}
	}

	seq := []string{"-map", fmt.Sprintf("0:%s", videoStream)}

	audioSeq := mapStreams("a", audio, t.AudioLanguages)
	if len(audioSeq) == 0 {
		return []string{}
	}
	subSeq := mapStreams("s", subtitle, t.SubtitleLanguages)

	seq = append(seq, audioSeq...)
	seq = append(seq, subSeq...)
	return seq
}
