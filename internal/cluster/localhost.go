package cluster

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/threshold"
)

// LocalHost runs the encoder as a child process on the same machine the
// scheduler is running on.
type LocalHost struct {
	base
	driver *ffmpeg.Driver
}

// NewLocalHost constructs a LocalHost worker.
func NewLocalHost(b base, driver *ffmpeg.Driver) *LocalHost {
	return &LocalHost{base: b, driver: driver}
}

// Probe always succeeds: the local machine is always reachable.
func (h *LocalHost) Probe(ctx context.Context) bool { return true }

// Run drains the assigned queue until empty, encoding each job locally.
func (h *LocalHost) Run(ctx context.Context) {
	for {
		j, ok := h.queue.pop()
		if !ok {
			return
		}
		h.runOne(ctx, j)
	}
}

func (h *LocalHost) runOne(ctx context.Context, j *job.EncodeJob) {
	basename := j.BaseName()
	outPath := tmpOutputPath(j.SourcePath, j.Template.Extension)
	args := buildArgs(j, h.videoCLI, j.SourcePath, outPath)

	if h.opts.DryRun {
		h.log("dry-run: " + h.driver.Path + " " + strings.Join(args, " "))
		return
	}

	var origSize int64
	if info, err := os.Stat(j.SourcePath); err == nil {
		origSize = info.Size()
	}

	h.bus.Publish(statusEvent(h.hostname, basename, "", 0, false, "starting"))

	start := time.Now()
	exitCode, vetoed, err := h.driver.Run(ctx, h.hostname, args, h.progressCallback(j, basename))
	elapsed := int(time.Since(start).Seconds())

	if err != nil {
		h.log("encoder driver error: " + err.Error())
		return
	}

	if vetoed {
		h.complete(j.SourcePath, elapsed)
		_ = os.Remove(outPath)
		return
	}

	if exitCode != 0 {
		h.log("did not complete normally, see " + h.driver.LastLogPath)
		_ = os.Remove(outPath)
		return
	}

	keep, err := threshold.FilterThreshold(j.Template, j.SourcePath, outPath)
	if err != nil {
		h.log("threshold check failed: " + err.Error())
		_ = os.Remove(outPath)
		return
	}
	if !keep {
		h.complete(j.SourcePath, elapsed)
		_ = os.Remove(outPath)
		return
	}

	finalPath := outPath
	if !h.opts.KeepSource {
		if err := os.Remove(j.SourcePath); err != nil {
			h.log("failed to remove source: " + err.Error())
			return
		}
		finalPath = outPath[:len(outPath)-len(".tmp")]
		if err := os.Rename(outPath, finalPath); err != nil {
			h.log("failed to promote output: " + err.Error())
			return
		}
	}

	var newSize int64
	if info, err := os.Stat(finalPath); err == nil {
		newSize = info.Size()
	}

	h.complete(j.SourcePath, elapsed)
	h.bus.Publish(statusEvent(h.hostname, basename, "", 100, true, sizeChangeStatus(origSize, newSize)))
}
