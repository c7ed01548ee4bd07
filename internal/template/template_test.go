package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
)

func TestValidate(t *testing.T) {
	tmpl := &Template{Name: "hd"}
	require.Error(t, tmpl.Validate())

	tmpl.Extension = "mkv"
	require.Error(t, tmpl.Validate())

	tmpl.Quality = "hd"
	require.NoError(t, tmpl.Validate())
}

func TestThresholdCheckDefault(t *testing.T) {
	tmpl := &Template{}
	assert.Equal(t, 100, tmpl.ThresholdCheck())

	tmpl.ThresholdCheckPct = 40
	assert.Equal(t, 40, tmpl.ThresholdCheck())
}

func TestOutputOptionsList(t *testing.T) {
	tmpl := &Template{AudioOptions: "-c:a aac -b:a 192k", SubtitleOptions: "-c:s copy"}
	assert.Equal(t, []string{"-c:a", "aac", "-b:a", "192k", "-c:s", "copy"}, tmpl.OutputOptionsList())
}

func TestStreamMapNoFilters(t *testing.T) {
	tmpl := &Template{}
	assert.Equal(t, []string{"-map", "0"}, tmpl.StreamMap("0", nil, nil))
}

func TestStreamMapFiltersUnknownAlwaysIncluded(t *testing.T) {
	tmpl := &Template{AudioLanguages: []string{"eng"}}
	audio := []mediainfo.StreamInfo{
		{Index: "1", Language: "eng"},
		{Index: "2", Language: "und"},
		{Index: "3", Language: "fre"},
	}
	got := tmpl.StreamMap("0", audio, nil)
	assert.Equal(t, []string{"-map", "0:0", "-map", "0:1", "-map", "0:2"}, got)
}

func TestStreamMapEmptyWhenNoAudioSurvives(t *testing.T) {
	tmpl := &Template{AudioLanguages: []string{"eng"}}
	audio := []mediainfo.StreamInfo{{Index: "1", Language: "fre"}}
	assert.Empty(t, tmpl.StreamMap("0", audio, nil))
}

func TestStreamMapReassignsDefaultWhenScreenedOut(t *testing.T) {
	tmpl := &Template{AudioLanguages: []string{"eng"}}
	audio := []mediainfo.StreamInfo{
		{Index: "1", Language: "fre", Default: true},
		{Index: "2", Language: "eng"},
	}
	got := tmpl.StreamMap("0", audio, nil)
	assert.Contains(t, got, "-disposition:a:0")
	assert.Contains(t, got, "default")
}
