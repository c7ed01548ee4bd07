package cluster

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsmithjr/wandarr-go/internal/config"
	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/runtimeopts"
	"github.com/mlsmithjr/wandarr-go/internal/template"
)

type stubProber struct{ size int64 }

func (s stubProber) Probe(path string) (*mediainfo.MediaInfo, error) {
	return &mediainfo.MediaInfo{Path: path, RuntimeSeconds: 600, FileSizeBytes: s.size}, nil
}

func baseConfig() *config.ClusterConfig {
	return &config.ClusterConfig{
		FFmpegPath: "/usr/bin/ffmpeg",
		Hosts: map[string]*config.HostConfig{
			"local": {Name: "local", Type: config.HostLocal, Enabled: true, Engines: []string{"svt"}},
		},
		Engines: map[string]*config.EngineConfig{
			"svt": {Name: "svt", Qualities: map[string]string{"hd": "-c:v libsvtav1 -crf 28"}},
		},
		Templates: map[string]*template.Template{
			"hd": {Name: "hd", Extension: "mkv", Quality: "hd"},
		},
	}
}

func TestNewBuildsOneWorkerPerHostEngineQuality(t *testing.T) {
	cfg := baseConfig()
	opts := runtimeopts.Default()
	opts.Logger = zerolog.Nop()

	c, err := New(context.Background(), cfg, opts, stubProber{size: 1000}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, c.hosts, 1)
}

func TestEnqueueRejectsUnknownTemplate(t *testing.T) {
	cfg := baseConfig()
	opts := runtimeopts.Default()
	c, err := New(context.Background(), cfg, opts, stubProber{size: 1000}, nil, nil)
	require.NoError(t, err)

	_, err = c.Enqueue("/movies/a.mkv", "missing")
	assert.Error(t, err)
}

func TestEnqueueRoutesToMatchingQualityQueue(t *testing.T) {
	cfg := baseConfig()
	opts := runtimeopts.Default()
	c, err := New(context.Background(), cfg, opts, stubProber{size: 1000}, nil, nil)
	require.NoError(t, err)

	_, err = c.Enqueue("/movies/a.mkv", "hd")
	require.NoError(t, err)
	assert.Len(t, c.queues["hd"].items, 1)
}

func TestHostFilterExcludesHost(t *testing.T) {
	cfg := baseConfig()
	opts := runtimeopts.Default()
	c, err := New(context.Background(), cfg, opts, stubProber{size: 1000}, nil, func(name string) bool { return false })
	require.NoError(t, err)
	assert.Empty(t, c.hosts)
}

func TestRunDrainsAllQueuedJobsDryRun(t *testing.T) {
	cfg := baseConfig()
	opts := runtimeopts.Default()
	opts.DryRun = true
	c, err := New(context.Background(), cfg, opts, stubProber{size: 1000}, nil, nil)
	require.NoError(t, err)

	_, err = c.Enqueue("/movies/a.mkv", "hd")
	require.NoError(t, err)
	_, err = c.Enqueue("/movies/b.mkv", "hd")
	require.NoError(t, err)

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, c.queues["hd"].items)
}

func TestFormatStatsRightAlignsPaths(t *testing.T) {
	var buf bytes.Buffer
	FormatStats(&buf, []Completion{
		{SourcePath: "/movies/a.mkv", ElapsedSeconds: 65},
		{SourcePath: "/movies/longer-name.mkv", ElapsedSeconds: 5},
	})
	out := buf.String()
	// the shorter path is padded to the 23-char width of the longer one
	assert.Contains(t, out, "          /movies/a.mkv  (  1m  5s)\n")
	assert.Contains(t, out, "(  1m  5s)")
	assert.Contains(t, out, "(  0m  5s)")
}

func TestNewProbesDownHostOnceAcrossQualities(t *testing.T) {
	cfg := &config.ClusterConfig{
		FFmpegPath: "/usr/bin/ffmpeg",
		SSHPath:    "/does/not/exist/ssh",
		Hosts: map[string]*config.HostConfig{
			"remote": {Name: "remote", Type: config.HostMounted, Enabled: true, Address: "10.0.0.9", User: "enc", OS: config.OSLinux, Engines: []string{"svt"}},
		},
		Engines: map[string]*config.EngineConfig{
			"svt": {Name: "svt", Qualities: map[string]string{
				"hd": "-c:v libsvtav1 -crf 28",
				"sd": "-c:v libsvtav1 -crf 32",
			}},
		},
		Templates: map[string]*template.Template{
			"hd": {Name: "hd", Extension: "mkv", Quality: "hd"},
		},
	}
	opts := runtimeopts.Default()
	opts.Logger = zerolog.Nop()
	opts.SSHPath = cfg.SSHPath

	c, err := New(context.Background(), cfg, opts, stubProber{size: 1000}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, c.hosts)
}

func TestFormatStatsEmptyIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	FormatStats(&buf, nil)
	assert.Empty(t, buf.String())
}
