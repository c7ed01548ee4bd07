package cluster

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/threshold"
)

// StreamingHost copies the source file to a remote working directory over
// scp, encodes it there over ssh, and copies the result back, for hosts
// with no shared filesystem at all.
type StreamingHost struct {
	base
	driver  *ffmpeg.Driver
	sshPath string
	scpPath string
}

// NewStreamingHost constructs a StreamingHost worker.
func NewStreamingHost(b base, driver *ffmpeg.Driver, sshPath, scpPath string) *StreamingHost {
	return &StreamingHost{base: b, driver: driver, sshPath: sshPath, scpPath: scpPath}
}

// Probe checks ssh reachability.
func (h *StreamingHost) Probe(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, h.sshPath, h.host.User+"@"+h.host.Address, "ls")
	return cmd.Run() == nil
}

// Run drains the assigned queue until empty.
func (h *StreamingHost) Run(ctx context.Context) {
	for {
		j, ok := h.queue.pop()
		if !ok {
			return
		}
		h.runOne(ctx, j)
	}
}

func (h *StreamingHost) runOne(ctx context.Context, j *job.EncodeJob) {
	basename := j.BaseName()
	remoteIn := filepath.Join(h.host.WorkingDir, basename)
	remoteOut := remoteIn + ".tmp"
	args := buildArgs(j, h.videoCLI, remoteIn, remoteOut)

	if h.opts.DryRun {
		h.log("dry-run (streaming): " + remoteIn + " -> " + remoteOut)
		return
	}

	var origSize int64
	if info, err := os.Stat(j.SourcePath); err == nil {
		origSize = info.Size()
	}

	h.bus.Publish(statusEvent(h.hostname, basename, "", 0, false, "copying"))

	target := h.host.WorkingDir
	if h.host.IsWindows() {
		target = "/" + target
	}
	scpUp := exec.CommandContext(ctx, h.scpPath, j.SourcePath, h.host.User+"@"+h.host.Address+":"+target)
	if out, err := scpUp.CombinedOutput(); err != nil {
		h.log("scp to remote failed, skipping: " + string(out))
		return
	}

	h.bus.Publish(statusEvent(h.hostname, basename, "", 0, false, "running"))

	start := time.Now()
	exitCode, vetoed, err := h.driver.RunRemote(ctx, h.hostname, h.sshPath, h.host.User+"@"+h.host.Address, h.host.FFmpegPath, args, h.progressCallback(j, basename))
	elapsed := int(time.Since(start).Seconds())
	if err != nil {
		h.log("encoder driver error: " + err.Error())
		return
	}

	localCopy := filepath.Join(os.TempDir(), filepath.Base(remoteOut))
	scpDown := exec.CommandContext(ctx, h.scpPath, h.host.User+"@"+h.host.Address+":"+remoteOut, localCopy)
	if out, derr := scpDown.CombinedOutput(); derr != nil {
		h.log("scp from remote failed: " + string(out))
	}
	defer h.removeRemote(ctx, remoteOut)
	defer os.Remove(localCopy)

	if vetoed {
		h.complete(j.SourcePath, elapsed)
		return
	}

	if exitCode != 0 {
		h.log("did not complete normally, see " + h.driver.LastLogPath)
		return
	}

	keep, err := threshold.FilterThreshold(j.Template, j.SourcePath, localCopy)
	if err != nil {
		h.log("threshold check failed: " + err.Error())
		return
	}
	if !keep {
		h.complete(j.SourcePath, elapsed)
		return
	}

	finalCopy := localCopy
	if !h.opts.KeepSource {
		finalCopy = localCopy[:len(localCopy)-len(".tmp")]
		if err := os.Rename(localCopy, finalCopy); err != nil {
			h.log("failed to rename retrieved copy: " + err.Error())
			return
		}
		if err := moveFile(finalCopy, j.SourcePath); err != nil {
			h.log("failed to move result into place: " + err.Error())
			return
		}
		finalCopy = j.SourcePath
	}

	var newSize int64
	if info, err := os.Stat(finalCopy); err == nil {
		newSize = info.Size()
	}

	h.complete(j.SourcePath, elapsed)
	h.bus.Publish(statusEvent(h.hostname, basename, "", 100, true, sizeChangeStatus(origSize, newSize)))
}

// removeRemote deletes the leftover remote output file once the run is
// fully settled.
func (h *StreamingHost) removeRemote(ctx context.Context, remotePath string) {
	rmCmd := "rm " + remotePath
	if h.host.IsWindows() {
		rmCmd = "del \"" + remotePath + "\""
	}
	_ = exec.CommandContext(ctx, h.sshPath, h.host.User+"@"+h.host.Address, rmCmd).Run()
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystem boundaries (the retrieved scp copy typically lives under the
// system temp dir, a different filesystem than the source tree).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}
	return os.Remove(src)
}
