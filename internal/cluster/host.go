package cluster

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mlsmithjr/wandarr-go/internal/config"
	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/runtimeopts"
	"github.com/mlsmithjr/wandarr-go/internal/statusbus"
	"github.com/mlsmithjr/wandarr-go/internal/threshold"
)

// Completion records one finished job for the final run summary.
type Completion struct {
	SourcePath     string
	ElapsedSeconds int
}

// HostWorker drains one per-quality queue against a single cluster member,
// following the variant-specific transport (local, mounted, streaming, or
// agent).
type HostWorker interface {
	Name() string
	Probe(ctx context.Context) bool
	Run(ctx context.Context)
	Completed() []Completion
}

// base holds the fields and helper methods shared by every host worker
// variant.
type base struct {
	hostname    string
	host        *config.HostConfig
	queue       *jobQueue
	bus         *statusbus.Bus
	opts        runtimeopts.Options
	videoCLI    string
	engineName  string
	qualityName string

	mu        sync.Mutex
	completed []Completion
}

func (b *base) Name() string { return b.hostname }

func (b *base) Completed() []Completion {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Completion, len(b.completed))
	copy(out, b.completed)
	return out
}

func (b *base) complete(sourcePath string, elapsedSeconds int) {
	b.mu.Lock()
	b.completed = append(b.completed, Completion{SourcePath: sourcePath, ElapsedSeconds: elapsedSeconds})
	b.mu.Unlock()
}

func (b *base) log(msg string) {
	b.opts.Logger.Info().Str("host", b.hostname).Msg(msg)
}

// mapStreams applies the job's template stream filter when the source is
// multistream.
func mapStreams(j *job.EncodeJob) []string {
	if !j.Media.IsMultistream() {
		return nil
	}
	return j.Template.StreamMap(j.Media.VideoStream, j.Media.Audio, j.Media.Subtitle)
}

// progressCallback adapts a job's ShouldAbort veto predicate into an
// ffmpeg.ProgressFunc, publishing a status event on every sample.
func (b *base) progressCallback(j *job.EncodeJob, basename string) ffmpeg.ProgressFunc {
	return func(stats ffmpeg.Stats) bool {
		pctDone, pctComp := threshold.CalculateProgress(j.Media, stats)

		speed := stats.Speed
		if speed == "N/A" || speed == "" {
			speed = "---"
		}

		b.bus.Publish(statusbus.Event{
			Host:   fmt.Sprintf("%s/%s", b.hostname, b.engineName),
			File:   basename,
			Speed:  speed,
			Comp:   pctComp,
			Status: "encoding",
		})

		if j.ShouldAbort(pctDone, pctComp) {
			b.bus.Publish(statusbus.Event{
				Host:      fmt.Sprintf("%s/%s", b.hostname, b.engineName),
				File:      basename,
				Speed:     speed,
				Comp:      pctComp,
				Completed: true,
				Status:    "skipped (threshold)",
			})
			return true
		}
		return false
	}
}

// tmpOutputPath derives the ".tmp" sibling path ffmpeg writes to before a
// successful run is promoted over the source.
func tmpOutputPath(sourcePath, extension string) string {
	base := sourcePath[:len(sourcePath)-len(filepath.Ext(sourcePath))]
	return base + extension + ".tmp"
}

// statusEvent builds a one-off statusbus.Event, used for the coarse
// connect/copy/running/complete milestones outside the encoder's own
// progress callback.
func statusEvent(host, file, speed string, comp int, completed bool, status string) statusbus.Event {
	return statusbus.Event{Host: host, File: file, Speed: speed, Comp: comp, Completed: completed, Status: status}
}

// quoteRemotePath renders a path for inclusion in a remote command line,
// converting separators for a Windows target and always double-quoting to
// protect embedded spaces, matching the remote shell's own quoting rules.
func quoteRemotePath(path string, windows bool) string {
	if windows {
		path = strings.ReplaceAll(path, "/", `\`)
	}
	return `"` + path + `"`
}

// sizeChangeStatus renders the terminal "<orig>mb -> <new>mb" summary
// shown when a job finishes, whether or not its source was replaced.
func sizeChangeStatus(origBytes, newBytes int64) string {
	return fmt.Sprintf("%dmb -> %dmb", origBytes/(1024*1024), newBytes/(1024*1024))
}

// buildArgs assembles the common ffmpeg argv shared by every transport:
// input options, the video quality fragment, output options, and the
// stream map, bookended by the caller-supplied input/output path
// arguments.
func buildArgs(j *job.EncodeJob, videoCLI, inPath, outPath string) []string {
	args := []string{"-y", "-stats_period", "2"}
	args = append(args, j.Template.InputOptionsList()...)
	args = append(args, "-i", inPath)
	args = append(args, strings.Fields(videoCLI)...)
	args = append(args, j.Template.OutputOptionsList()...)
	args = append(args, mapStreams(j)...)
	args = append(args, outPath)
	return args
}
