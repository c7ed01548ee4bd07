// Package ffmpeg drives the encoder as a child process (or over a remote
// shell), parses its textual progress stream, and exposes
// the per-run transaction log used for diagnostics.
package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
)

// Stats is one parsed encoder status sample.
type Stats struct {
	Frame       int
	FPS         string
	Q           string
	SizeBytes   int64
	TimeSeconds int  // meaningless when TimeNA is true
	TimeNA      bool // true when the encoder reported "N/A" for time
	Speed       string
}

// progressLineRe matches the encoder's textual status line grammar:
//
//	frame=<int> fps=<num> q=<float> size=<int>(kB|KiB) time=(HH:MM:SS.CC|N/A) bitrate=<...> speed=(<num>x|N/A)
var progressLineRe = regexp.MustCompile(
	`frame=\s*(?P<frame>\d+?)\s+fps=\s*(?P<fps>[\d.]+)\s+q=(?P<q>[\-\d.]+)\s+size=\s*(?P<size>\d+?)(?:kB|KiB)\s+time=(?P<time>\d\d:\d\d:\d\d\.\d\d|N/A)\s+bitrate=\S+\s+speed=(?P<speed>N/A|[\d.]+x)`)

// ParseProgressLine parses one encoder status line. Lines that don't match
// the grammar are log-only and ok is false.
func ParseProgressLine(line string) (stats Stats, ok bool) {
	m := progressLineRe.FindStringSubmatch(line)
	if m == nil {
		return Stats{}, false
	}
	names := progressLineRe.SubexpNames()
	fields := make(map[string]string, len(names))
	for i, n := range names {
		if n != "" {
			fields[n] = m[i]
		}
	}

	frame, _ := strconv.Atoi(fields["frame"])
	sizeKB, _ := strconv.ParseInt(fields["size"], 10, 64)

	stats = Stats{
		Frame:     frame,
		FPS:       fields["fps"],
		Q:         fields["q"],
		SizeBytes: sizeKB * 1024,
		Speed:     fields["speed"],
	}

	if fields["time"] == "N/A" {
		stats.TimeNA = true
	} else {
		stats.TimeSeconds = parseHHMMSS(fields["time"])
	}

	return stats, true
}

// parseHHMMSS converts "HH:MM:SS.CC" to whole seconds, truncating the
// centisecond component.
func parseHHMMSS(raw string) int {
	main := raw
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		main = raw[:idx]
	}
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return 0
	}
	hh, _ := strconv.Atoi(parts[0])
	mm, _ := strconv.Atoi(parts[1])
	ss, _ := strconv.Atoi(parts[2])
	return hh*3600 + mm*60 + ss
}
