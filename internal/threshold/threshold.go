// Package threshold implements the progress-extrapolation and
// compression-savings enforcement logic shared by every host worker
// variant: how far along an in-flight encode is, and whether a finished
// encode saved enough space to keep.
package threshold

import (
	"fmt"
	"os"

	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/template"
)

// CalculateProgress extrapolates how far an in-flight encode has
// progressed, both in playback time (pctDone) and in projected
// compression (pctComp).
//
// pctDone prefers the frame count: floor(100 * stats.Frame / media.Frames)
// when both are known, since ffmpeg's "time=" field reports N/A on some
// builds while "frame=" keeps counting. It falls back to
// floor(100 * stats.TimeSeconds / media.RuntimeSeconds) only when the
// frame counts aren't usable, and is 0 when neither is.
//
// pctComp extrapolates the portion of the source that pctDone implies has
// been consumed (projectedSourceBytes = media.FileSizeBytes * pctDone /
// 100), then compares the bytes actually encoded so far against it:
// pct_dest = stats.SizeBytes / projectedSourceBytes * 100, pct_comp
// = 100 - pct_dest. Whenever the projection can't be formed (zero
// pctDone, zero projected bytes), pctComp is 0.
func CalculateProgress(media *mediainfo.MediaInfo, stats ffmpeg.Stats) (pctDone, pctComp int) {
	switch {
	case media.Frames > 0 && stats.Frame > 0:
		pctDone = (100 * stats.Frame) / media.Frames
	case media.RuntimeSeconds > 0 && !stats.TimeNA && stats.TimeSeconds > 0:
		pctDone = (100 * stats.TimeSeconds) / media.RuntimeSeconds
	default:
		return 0, 0
	}
	if pctDone > 100 {
		pctDone = 100
	}

	projectedSourceBytes := int64(float64(media.FileSizeBytes) * (float64(pctDone) / 100.0))
	if projectedSourceBytes <= 0 {
		return pctDone, 0
	}

	pctDest := int((100 * stats.SizeBytes) / projectedSourceBytes)
	pctComp = 100 - pctDest
	if pctComp < 0 {
		pctComp = 0
	}
	return pctDone, pctComp
}

// IsExceededThreshold reports whether newSize represents at least
// pctThreshold percent savings over origSize:
// pct_saved = 100 - floor(100*newSize/origSize) >= pctThreshold.
func IsExceededThreshold(pctThreshold int, origSize, newSize int64) bool {
	if origSize <= 0 {
		return false
	}
	pctDest := int((100 * newSize) / origSize)
	pctSaved := 100 - pctDest
	return pctSaved >= pctThreshold
}

// FilterThreshold is the post-encode savings gate applied once a file has
// finished transcoding. It compares the finished output at
// newPath against the original at origPath and reports whether the output
// should be kept (true) or discarded for insufficient savings (false). A
// template threshold of 0 always keeps the output.
func FilterThreshold(tmpl *template.Template, origPath, newPath string) (bool, error) {
	if tmpl.Threshold <= 0 {
		return true, nil
	}

	origInfo, err := os.Stat(origPath)
	if err != nil {
		return false, fmt.Errorf("threshold check: stat original %s: %w", origPath, err)
	}
	newInfo, err := os.Stat(newPath)
	if err != nil {
		return false, fmt.Errorf("threshold check: stat output %s: %w", newPath, err)
	}

	return IsExceededThreshold(tmpl.Threshold, origInfo.Size(), newInfo.Size()), nil
}
