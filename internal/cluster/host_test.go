package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/template"
)

func TestTmpOutputPath(t *testing.T) {
	assert.Equal(t, "/movies/foo.mkv.tmp", tmpOutputPath("/movies/foo.mp4", ".mkv"))
}

func TestMapStreamsNilWhenNotMultistream(t *testing.T) {
	j := &job.EncodeJob{
		Media:    &mediainfo.MediaInfo{Audio: []mediainfo.StreamInfo{{Index: "1", Language: "eng"}}},
		Template: &template.Template{AudioLanguages: []string{"jpn"}},
	}
	assert.Nil(t, mapStreams(j))
}

func TestMapStreamsDelegatesToTemplateWhenMultistream(t *testing.T) {
	j := &job.EncodeJob{
		Media: &mediainfo.MediaInfo{
			VideoStream: "0",
			Audio: []mediainfo.StreamInfo{
				{Index: "1", Language: "eng"},
				{Index: "2", Language: "jpn"},
			},
		},
		Template: &template.Template{AudioLanguages: []string{"eng"}},
	}
	got := mapStreams(j)
	assert.Equal(t, []string{"-map", "0:0", "-map", "0:1"}, got)
}

func TestBuildArgsOrdering(t *testing.T) {
	j := &job.EncodeJob{
		Media:    &mediainfo.MediaInfo{},
		Template: &template.Template{InputOptions: []string{"-hide_banner"}, AudioOptions: "-c:a copy"},
	}
	args := buildArgs(j, "-c:v libsvtav1 -crf 28", "in.mkv", "out.mkv")
	assert.Equal(t, []string{
		"-y", "-stats_period", "2", "-hide_banner", "-i", "in.mkv",
		"-c:v", "libsvtav1", "-crf", "28",
		"-c:a", "copy",
		"out.mkv",
	}, args)
}
