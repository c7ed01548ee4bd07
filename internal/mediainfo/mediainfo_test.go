package mediainfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMultistream(t *testing.T) {
	mi := &MediaInfo{Audio: []StreamInfo{{Language: "eng"}}}
	assert.False(t, mi.IsMultistream())

	mi.Audio = append(mi.Audio, StreamInfo{Language: "jpn"})
	assert.True(t, mi.IsMultistream())
}

func TestStringIncludesKeyFields(t *testing.T) {
	mi := &MediaInfo{
		Path: "/movies/test.mkv", VideoCodec: "hevc", Width: 1920, Height: 1080,
		FPS: 24, RuntimeSeconds: 3661, FileSizeBytes: 2_000_000_000,
		Audio:    []StreamInfo{{Language: "eng", Format: "aac", Default: true}},
		Subtitle: []StreamInfo{{Language: "eng"}},
	}
	s := mi.String()
	assert.Contains(t, s, "/movies/test.mkv")
	assert.Contains(t, s, "1920x1080")
	assert.Contains(t, s, "hevc")
	assert.Contains(t, s, "eng*,aac")
}

func TestShowInfoSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	ShowInfo(&buf, []*MediaInfo{nil, {Path: "/a.mkv"}})
	assert.Contains(t, buf.String(), "a.mkv")
}
