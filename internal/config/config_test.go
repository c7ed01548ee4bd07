package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
config:
  ffmpeg: /usr/bin/ffmpeg
  ssh: /usr/bin/ssh
  scp: /usr/bin/scp
  agent_port: 9567

cluster:
  workstation:
    type: local
    engines:
      - svt
  gpubox:
    type: mounted
    ip: 10.0.0.5
    user: encode
    os: linux
    engines:
      - svt
  laptop:
    type: agent
    ip: 10.0.0.9
    status: disabled
    engines:
      - svt

engines:
  svt:
    quality:
      hd: "-c:v libsvtav1 -crf 28"
      sd: "-c:v libsvtav1 -crf 32"

templates:
  hd:
    cli:
      input-options:
        - "-hide_banner"
      audio: "-c:a aac"
      subtitles: "-c:s copy"
    extension: mkv
    video-quality: hd
    audio-lang: "eng,jpn"
    threshold: 20
    threshold_check: 50
`

func TestParseFullDocument(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 9567, cfg.AgentPort)

	require.Contains(t, cfg.Hosts, "workstation")
	assert.True(t, cfg.Hosts["workstation"].Enabled)
	assert.Equal(t, HostLocal, cfg.Hosts["workstation"].Type)

	require.Contains(t, cfg.Hosts, "laptop")
	assert.False(t, cfg.Hosts["laptop"].Enabled)

	require.Contains(t, cfg.Templates, "hd")
	tmpl := cfg.Templates["hd"]
	assert.Equal(t, []string{"eng", "jpn"}, tmpl.AudioLanguages)
	assert.Equal(t, 20, tmpl.Threshold)
	assert.Equal(t, 50, tmpl.ThresholdCheckPct)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMountedHostWithoutAddress(t *testing.T) {
	cfg := &ClusterConfig{
		FFmpegPath: "/usr/bin/ffmpeg",
		Hosts: map[string]*HostConfig{
			"bad": {Type: HostMounted, Enabled: true},
		},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingFFmpegPath(t *testing.T) {
	cfg := &ClusterConfig{Hosts: map[string]*HostConfig{"a": {Type: HostLocal, Enabled: true}}}
	assert.Error(t, cfg.Validate())
}

func TestSubstitutePathsFirstMatchWins(t *testing.T) {
	h := &HostConfig{
		PathSubstitutions: []PathSubstitution{
			{SrcPrefix: "/mnt/media", DstPrefix: "/data"},
			{SrcPrefix: "/mnt", DstPrefix: "/other"},
		},
	}
	in, out := h.SubstitutePaths("/mnt/media/movie.mkv", "/mnt/media/movie.mkv.tmp")
	assert.Equal(t, "/data/movie.mkv", in)
	assert.Equal(t, "/data/movie.mkv.tmp", out)
}

func TestSubstitutePathsNoMatchReturnsUnchanged(t *testing.T) {
	h := &HostConfig{PathSubstitutions: []PathSubstitution{{SrcPrefix: "/mnt", DstPrefix: "/data"}}}
	in, out := h.SubstitutePaths("/other/movie.mkv", "/other/movie.mkv.tmp")
	assert.Equal(t, "/other/movie.mkv", in)
	assert.Equal(t, "/other/movie.mkv.tmp", out)
}
