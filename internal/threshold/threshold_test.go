package threshold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/template"
)

func TestCalculateProgressNoRuntime(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 0, FileSizeBytes: 1000}
	pctDone, pctComp := CalculateProgress(media, ffmpeg.Stats{TimeSeconds: 10, SizeBytes: 100})
	assert.Equal(t, 0, pctDone)
	assert.Equal(t, 0, pctComp)
}

func TestCalculateProgressTimeNA(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 1000}
	pctDone, pctComp := CalculateProgress(media, ffmpeg.Stats{TimeNA: true})
	assert.Equal(t, 0, pctDone)
	assert.Equal(t, 0, pctComp)
}

func TestCalculateProgressZeroEncodedBytesSoFar(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 1000}
	// no bytes encoded yet at 10% done -> pct_dest is 0, so pct_comp reads 100
	pctDone, pctComp := CalculateProgress(media, ffmpeg.Stats{TimeSeconds: 10, SizeBytes: 0})
	assert.Equal(t, 10, pctDone)
	assert.Equal(t, 100, pctComp)
}

func TestCalculateProgressZeroFileSizeYieldsZeroComp(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 0}
	pctDone, pctComp := CalculateProgress(media, ffmpeg.Stats{TimeSeconds: 10, SizeBytes: 400})
	assert.Equal(t, 10, pctDone)
	assert.Equal(t, 0, pctComp)
}

func TestCalculateProgressPrefersFrameCountOverTime(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 1000, Frames: 1000}
	// time=N/A (the post-7.0 ffmpeg case) but frame is known: frame-based path wins
	pctDone, pctComp := CalculateProgress(media, ffmpeg.Stats{TimeNA: true, Frame: 550, SizeBytes: 440})
	assert.Equal(t, 55, pctDone)
	assert.Equal(t, 20, pctComp)
}

func TestCalculateProgressFallsBackToTimeWhenFramesUnknown(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 1000, Frames: 0}
	pctDone, _ := CalculateProgress(media, ffmpeg.Stats{TimeSeconds: 50, SizeBytes: 400})
	assert.Equal(t, 50, pctDone)
}

func TestCalculateProgressHalfwayEstimate(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 1000}
	// 50s elapsed, 400 bytes so far -> projected 800 bytes -> 80% of 1000 -> 20% saved
	pctDone, pctComp := CalculateProgress(media, ffmpeg.Stats{TimeSeconds: 50, SizeBytes: 400})
	assert.Equal(t, 50, pctDone)
	assert.Equal(t, 20, pctComp)
}

func TestCalculateProgressClampsDoneAt100(t *testing.T) {
	media := &mediainfo.MediaInfo{RuntimeSeconds: 100, FileSizeBytes: 1000}
	pctDone, _ := CalculateProgress(media, ffmpeg.Stats{TimeSeconds: 200, SizeBytes: 100})
	assert.Equal(t, 100, pctDone)
}

func TestIsExceededThreshold(t *testing.T) {
	assert.True(t, IsExceededThreshold(20, 1000, 700))  // 30% saved >= 20%
	assert.False(t, IsExceededThreshold(50, 1000, 700))  // 30% saved < 50%
	assert.False(t, IsExceededThreshold(10, 0, 700))     // unknown original size
}

func TestFilterThresholdZeroDisables(t *testing.T) {
	tmpl := &template.Template{Threshold: 0}
	keep, err := FilterThreshold(tmpl, "/does/not/exist", "/also/missing")
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestFilterThresholdComparesRealFiles(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.mkv")
	newer := filepath.Join(dir, "new.mkv")
	require.NoError(t, os.WriteFile(orig, make([]byte, 1000), 0644))
	require.NoError(t, os.WriteFile(newer, make([]byte, 400), 0644))

	tmpl := &template.Template{Threshold: 30}
	keep, err := FilterThreshold(tmpl, orig, newer)
	require.NoError(t, err)
	assert.True(t, keep)

	tmpl.Threshold = 90
	keep, err = FilterThreshold(tmpl, orig, newer)
	require.NoError(t, err)
	assert.False(t, keep)
}
