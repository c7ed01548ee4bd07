package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/util"
)

// ProgressFunc is invoked on a monitor-interval cadence with the most
// recent parsed status sample. Returning veto=true asks the driver to kill
// the encoder process (used by the mid-flight threshold check).
type ProgressFunc func(stats Stats) (veto bool)

// Driver drives a local encoder process and owns its per-run transaction
// log, merging stdout/stderr into a single scanned stream.
type Driver struct {
	Path            string        // path to the ffmpeg binary
	MonitorInterval time.Duration // minimum time between ProgressFunc invocations
	LogDir          string        // directory transaction logs are written to

	LastCommand string // the most recently executed command line, for diagnostics
	LastLogPath string // the most recently written transaction log path
}

// NewDriver constructs a Driver with a default 10s monitor interval.
func NewDriver(path, logDir string) *Driver {
	return &Driver{Path: path, MonitorInterval: 10 * time.Second, LogDir: logDir}
}

// Run executes the encoder locally with the given arguments, scanning its
// merged stdout/stderr for status lines and invoking cb on a
// MonitorInterval cadence. It returns the process exit code, whether cb
// vetoed the run, and any error launching or communicating with the
// process (a non-zero exit code is not itself an error).
func (d *Driver) Run(ctx context.Context, workerID string, args []string, cb ProgressFunc) (exitCode int, vetoed bool, err error) {
	logPath, err := util.EncoderLogPath(d.LogDir, workerID)
	if err != nil {
		return -1, false, err
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return -1, false, fmt.Errorf("creating transaction log %s: %w", logPath, err)
	}
	defer logFile.Close()
	d.LastLogPath = logPath

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.Path, args...)
	d.LastCommand = cmd.String()

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if startErr := cmd.Start(); startErr != nil {
		return -1, false, fmt.Errorf("starting encoder: %w", startErr)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cmd.Wait()
		_ = pw.Close()
	}()

	var last Stats
	var lastCallbackAt time.Time
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(logFile, line)

		stats, ok := ParseProgressLine(line)
		if !ok {
			continue
		}
		last = stats

		if cb == nil {
			continue
		}
		if now := time.Now(); lastCallbackAt.IsZero() || now.Sub(lastCallbackAt) >= d.MonitorInterval {
			lastCallbackAt = now
			if cb(last) {
				vetoed = true
				cancel()
			}
		}
	}

	<-done

	exitCode = cmd.ProcessState.ExitCode()
	if exitCode == 0 {
		_ = os.Remove(logPath)
	}
	return exitCode, vetoed, nil
}

// RunRemote executes the encoder on a remote host over ssh, merging the
// remote process's stdout/stderr the same way Run does for a local
// process. userAtHost is the ssh destination ("user@host"); encoderPath is
// the remote host's ffmpeg binary, placed on the command line after the ssh
// destination since ssh itself takes no program argument.
func (d *Driver) RunRemote(ctx context.Context, workerID, sshPath, userAtHost, encoderPath string, remoteArgs []string, cb ProgressFunc) (exitCode int, vetoed bool, err error) {
	args := append([]string{userAtHost, encoderPath}, remoteArgs...)
	remote := &Driver{Path: sshPath, MonitorInterval: d.MonitorInterval, LogDir: d.LogDir}
	exitCode, vetoed, err = remote.Run(ctx, workerID, args, cb)
	d.LastCommand = remote.LastCommand
	d.LastLogPath = remote.LastLogPath
	return exitCode, vetoed, err
}
