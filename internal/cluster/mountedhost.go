package cluster

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/threshold"
)

// MountedHost drives the encoder on a remote host over ssh against a path
// that's also visible (under some mount) to the controller.
type MountedHost struct {
	base
	driver  *ffmpeg.Driver
	sshPath string

	// RemoteInPath and RemoteOutPath record the quoted remote paths used by
	// the most recently started job, for diagnostics.
	RemoteInPath  string
	RemoteOutPath string
}

// NewMountedHost constructs a MountedHost worker.
func NewMountedHost(b base, driver *ffmpeg.Driver, sshPath string) *MountedHost {
	return &MountedHost{base: b, driver: driver, sshPath: sshPath}
}

// Probe checks ssh reachability.
func (h *MountedHost) Probe(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, h.sshPath, h.host.User+"@"+h.host.Address, "ls")
	return cmd.Run() == nil
}

// Run drains the assigned queue until empty, encoding each job remotely
// with paths rewritten through the host's path substitutions.
func (h *MountedHost) Run(ctx context.Context) {
	for {
		j, ok := h.queue.pop()
		if !ok {
			return
		}
		h.runOne(ctx, j)
	}
}

func (h *MountedHost) runOne(ctx context.Context, j *job.EncodeJob) {
	basename := j.BaseName()
	outPath := tmpOutputPath(j.SourcePath, j.Template.Extension)

	remoteIn, remoteOut := j.SourcePath, outPath
	if h.host.HasPathSubstitutions() {
		remoteIn, remoteOut = h.host.SubstitutePaths(j.SourcePath, outPath)
	}
	h.RemoteInPath = quoteRemotePath(remoteIn, h.host.IsWindows())
	h.RemoteOutPath = quoteRemotePath(remoteOut, h.host.IsWindows())

	args := buildArgs(j, h.videoCLI, h.RemoteInPath, h.RemoteOutPath)

	if h.opts.DryRun {
		h.log("dry-run (mounted): " + h.RemoteInPath + " -> " + h.RemoteOutPath)
		return
	}

	var origSize int64
	if info, err := os.Stat(j.SourcePath); err == nil {
		origSize = info.Size()
	}

	h.bus.Publish(statusEvent(h.hostname, basename, "", 0, false, "starting"))

	start := time.Now()
	exitCode, vetoed, err := h.driver.RunRemote(ctx, h.hostname, h.sshPath, h.host.User+"@"+h.host.Address, h.host.FFmpegPath, args, h.progressCallback(j, basename))
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
