package cluster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/agent"
	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/threshold"
)

// AgentHost dispatches jobs to a wandarr agent daemon over the agent wire
// protocol.
type AgentHost struct {
	base
	client     *agent.Client
	pingProbe  string // ssh-style host address used for the pre-agent ping_test_ok
	sshPath    string
	ffmpegPath string // path to ffmpeg as seen by the remote agent
}

// NewAgentHost constructs an AgentHost worker. addr is "host:port" for the
// agent daemon.
func NewAgentHost(b base, addr, ffmpegPath string) *AgentHost {
	return &AgentHost{base: b, client: agent.NewClient(addr, b.opts.Logger), pingProbe: b.host.Address, sshPath: b.opts.SSHPath, ffmpegPath: ffmpegPath}
}

// Probe checks the agent's own PING/PONG liveness.
func (h *AgentHost) Probe(ctx context.Context) bool {
	if h.pingProbe != "" {
		cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", "5", h.pingProbe)
		if cmd.Run() != nil {
			return false
		}
	}
	return h.client.Ping()
}

// Run drains the assigned queue until empty.
func (h *AgentHost) Run(ctx context.Context) {
	for {
		j, ok := h.queue.pop()
		if !ok {
			return
		}
		h.runOne(ctx, j)
	}
}

func (h *AgentHost) runOne(ctx context.Context, j *job.EncodeJob) {
	if h.host.HasPathSubstitutions() {
		h.runOneShared(ctx, j)
		return
	}
	h.runOneFileTransfer(ctx, j)
}

// progressCB adapts a job's mid-flight threshold check into an
// agent.ProgressFunc, publishing a status event on every sample.
func (h *AgentHost) progressCB(j *job.EncodeJob, basename string) func(stats ffmpeg.Stats) bool {
	return func(stats ffmpeg.Stats) bool {
		pctDone, pctComp := threshold.CalculateProgress(j.Media, stats)
		if j.ShouldAbort(pctDone, pctComp) {
			h.bus.Publish(statusEvent(h.hostname, basename, "---", pctComp, true, "skipped (threshold)"))
			return true
		}
		speed := stats.Speed
		if speed == "N/A" || speed == "" {
			speed = "---"
		}
		h.bus.Publish(statusEvent(h.hostname, basename, speed, pctComp, false, "encoding"))
		return false
	}
}

// runOneFileTransfer dispatches over the HELLO variant: the controller
// pushes the source file and pulls the encoded result back.
func (h *AgentHost) runOneFileTransfer(ctx context.Context, j *job.EncodeJob) {
	basename := j.BaseName()

	// {FILENAME} is resolved by the agent once it knows the uploaded
	// file's on-disk path; the controller only ever sees the placeholder.
	args := buildArgs(j, h.videoCLI, "{FILENAME}", "")
	args = args[:len(args)-1] // the agent appends its own output path argument
	args = append([]string{h.ffmpegPath}, args...)

	if h.opts.DryRun {
		h.log("dry-run (agent): " + strings.Join(args, "$"))
		return
	}

	h.bus.Publish(statusEvent(h.hostname, basename, "", 0, false, "connect"))

	var origSize int64
	if info, err := os.Stat(j.SourcePath); err == nil {
		origSize = info.Size()
	}

	start := time.Now()
	result, err := h.client.RunFileTransfer(ctx, os.TempDir(), j.SourcePath, args, h.opts.KeepSource, h.progressCB(j, basename))
	elapsed := int(time.Since(start).Seconds())
	if err != nil {
		h.log(fmt.Sprintf("agent job failed: %v", err))
		return
	}
	if result.Vetoed {
		h.complete(j.SourcePath, elapsed)
		return
	}

	var newSize int64
	if info, err := os.Stat(result.ResultPath); err == nil {
		newSize = info.Size()
	}

	h.complete(j.SourcePath, elapsed)
	h.bus.Publish(statusEvent(h.hostname, basename, "", 100, true, sizeChangeStatus(origSize, newSize)))
}

// runOneShared dispatches over the HELLOS variant: the controller and agent
// already see the same filesystem, so only the rewritten shared paths cross
// the wire and the agent reads/writes them directly.
func (h *AgentHost) runOneShared(ctx context.Context, j *job.EncodeJob) {
	basename := j.BaseName()
	outPath := tmpOutputPath(j.SourcePath, j.Template.Extension)
	sharedIn, sharedOut := h.host.SubstitutePaths(j.SourcePath, outPath)

	args := buildArgs(j, h.videoCLI, sharedIn, sharedOut)
	args = append([]string{h.ffmpegPath}, args...)

	if h.opts.DryRun {
		h.log("dry-run (agent, shared): " + sharedIn + " -> " + sharedOut)
		return
	}

	h.bus.Publish(statusEvent(h.hostname, basename, "", 0, false, "connect"))

	var origSize int64
	if info, err := os.Stat(j.SourcePath); err == nil {
		origSize = info.Size()
	}

	start := time.Now()
	result, err := h.client.RunShared(ctx, sharedIn, sharedOut, args, h.opts.KeepSource, h.progressCB(j, basename))
	elapsed := int(time.Since(start).Seconds())
	if err != nil {
		h.log(fmt.Sprintf("agent job failed: %v", err))
		return
	}
	if result.Vetoed {
		h.complete(j.SourcePath, elapsed)
		return
	}

	finalPath := sharedOut
	if !h.opts.KeepSource {
		finalPath = j.SourcePath
	}
	var newSize int64
	if info, err := os.Stat(finalPath); err == nil {
		newSize = info.Size()
	}

	h.complete(j.SourcePath, elapsed)
	h.bus.Publish(statusEvent(h.hostname, basename, "", 100, true, sizeChangeStatus(origSize, newSize)))
}
