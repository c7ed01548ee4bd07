package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
)

// DialTimeout is the connect timeout used both for liveness pings and for
// dispatching a job.
const DialTimeout = 2 * time.Second

// Client is the controller-side counterpart of Server, used by the agent
// host worker variant to dispatch one job per connection.
type Client struct {
	Addr   string
	Logger zerolog.Logger
}

// NewClient constructs a Client targeting addr ("host:port").
func NewClient(addr string, logger zerolog.Logger) *Client {
	return &Client{Addr: addr, Logger: logger}
}

// Ping dials the agent and checks for a PONG reply. It is the agent host
// variant's liveness probe.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("tcp", c.Addr, DialTimeout)
	if err != nil {
		return false
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(MsgPing)); err != nil {
		return false
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return false
	}
	return string(buf) == MsgPong
}

// ProgressFunc receives each parsed status sample from the remote encoder
// and returns true to veto the run.
type ProgressFunc func(stats ffmpeg.Stats) (veto bool)

// Result describes the outcome of a dispatched job.
type Result struct {
	Vetoed     bool
	ExitCode   int
	ResultPath string // populated only for the file-transfer (HELLO) variant
}

// RunFileTransfer dispatches a job using the HELLO (file-transfer) variant:
// the source is uploaded, the result is downloaded back and atomically
// replaces sourcePath unless keepSource is set.
func (c *Client) RunFileTransfer(ctx context.Context, tempDir, sourcePath string, argv []string, keepSource bool, cb ProgressFunc) (Result, error) {
	conn, err := net.DialTimeout("tcp", c.Addr, DialTimeout)
	if err != nil {
		return Result{}, fmt.Errorf("agent client: dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	info, err := os.Stat(sourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("agent client: stat source: %w", err)
	}
	baseName := filepath.Base(sourcePath)

	greeting := EncodeHello(HelloGreeting{
		Version:    ProtocolVersion,
		FileSize:   info.Size(),
		TempDir:    tempDir,
		FileName:   baseName,
		CommandStr: strings.Join(argv, "$"),
	})

	if _, err := conn.Write([]byte(greeting)); err != nil {
		return Result{}, fmt.Errorf("agent client: send greeting: %w", err)
	}

	echo := make([]byte, len(greeting)+64)
	n, err := conn.Read(echo)
	if err != nil {
		return Result{}, fmt.Errorf("agent client: read greeting echo: %w", err)
	}
	if string(echo[:n]) != greeting {
		return Result{}, fmt.Errorf("agent client: greeting mismatch, got %q", string(echo[:n]))
	}

	if err := pushFile(conn, sourcePath); err != nil {
		return Result{}, fmt.Errorf("agent client: push file: %w", err)
	}

	kind, exitCode, resultSize, reason, vetoed, err := c.streamAndAwaitTerminal(conn, cb)
	if err != nil {
		return Result{}, err
	}
	if vetoed {
		return Result{Vetoed: true}, nil
	}
	if kind == TerminalErr {
		return Result{ExitCode: exitCode}, fmt.Errorf("agent: encoder exited %d", exitCode)
	}
	if kind == TerminalNak {
		return Result{}, fmt.Errorf("agent: %s", reason)
	}

	if _, err := conn.Write([]byte(MsgAck)); err != nil {
		return Result{}, fmt.Errorf("agent client: send ack: %w", err)
	}

	tmpPath := sourcePath + ".tmp"
	if err := pullFile(conn, tmpPath, resultSize); err != nil {
		return Result{}, fmt.Errorf("agent client: pull result: %w", err)
	}

	if !keepSource {
		if err := os.Remove(sourcePath); err != nil {
			return Result{}, fmt.Errorf("agent client: remove source: %w", err)
		}
		if err := os.Rename(tmpPath, sourcePath); err != nil {
			return Result{}, fmt.Errorf("agent client: promote result: %w", err)
		}
		return Result{ExitCode: exitCode, ResultPath: sourcePath}, nil
	}
	return Result{ExitCode: exitCode, ResultPath: tmpPath}, nil
}

// RunShared dispatches a job using the HELLOS (shared-mount) variant: the
// controller and agent already see the same filesystem, so only the source
// and destination paths cross the wire.
func (c *Client) RunShared(ctx context.Context, sharedIn, sharedOut string, argv []string, keepSource bool, cb ProgressFunc) (Result, error) {
	conn, err := net.DialTimeout("tcp", c.Addr, DialTimeout)
	if err != nil {
		return Result{}, fmt.Errorf("agent client: dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	greeting := EncodeHelloShared(HelloSharedGreeting{
		Version:    ProtocolVersion,
		SharedIn:   sharedIn,
		SharedOut:  sharedOut,
		CommandStr: strings.Join(argv, "$"),
		KeepSource: keepSource,
	})
	if _, err := conn.Write([]byte(greeting)); err != nil {
		return Result{}, fmt.Errorf("agent client: send greeting: %w", err)
	}

	echo := make([]byte, len(greeting)+64)
	n, err := conn.Read(echo)
	if err != nil {
		return Result{}, fmt.Errorf("agent client: read greeting ack: %w", err)
	}
	resp := string(echo[:n])
	if kind, _, _, reason, ok := tryParseTerminal(resp); ok && kind == TerminalNak {
		return Result{}, fmt.Errorf("agent: %s", reason)
	}
	if resp != greeting {
		return Result{}, fmt.Errorf("agent client: greeting mismatch, got %q", resp)
	}

	kind, exitCode, _, reason, vetoed, err := c.streamAndAwaitTerminal(conn, cb)
	if err != nil {
		return Result{}, err
	}
	if vetoed {
		return Result{Vetoed: true}, nil
	}
	if kind == TerminalErr {
		return Result{ExitCode: exitCode}, fmt.Errorf("agent: encoder exited %d", exitCode)
	}
	if kind == TerminalNak {
		return Result{}, fmt.Errorf("agent: %s", reason)
	}

	if _, err := conn.Write([]byte(MsgAck)); err != nil {
		return Result{}, fmt.Errorf("agent client: send ack: %w", err)
	}
	return Result{ExitCode: exitCode}, nil
}

// streamAndAwaitTerminal reads the STREAM phase line by line, invoking cb
// with each parsed status sample and relaying its veto decision back to
// the agent, until a terminal DONE|/ERR|/NAK| line arrives.
func (c *Client) streamAndAwaitTerminal(conn net.Conn, cb ProgressFunc) (kind TerminalKind, exitCode int, resultSize int64, reason string, vetoed bool, err error) {
	reader := bufio.NewReader(conn)
	for {
		line, rerr := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line != "" {
			if k, code, size, rsn, ok := tryParseTerminal(line); ok {
				return k, code, size, rsn, false, nil
			}

			stats, ok := ffmpeg.ParseProgressLine(line)
			veto := false
			if ok && cb != nil {
				veto = cb(stats)
			}
			token := MsgAck
			if veto {
				token = MsgVeto
			}
			if _, werr := conn.Write([]byte(token)); werr != nil {
				return TerminalUnknown, 0, 0, "", false, fmt.Errorf("agent client: send control token: %w", werr)
			}
			if veto {
				return TerminalUnknown, 0, 0, "", true, nil
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return TerminalUnknown, 0, 0, "", false, fmt.Errorf("agent client: connection closed before terminal message")
			}
			return TerminalUnknown, 0, 0, "", false, fmt.Errorf("agent client: read stream: %w", rerr)
		}
	}
}

func tryParseTerminal(line string) (TerminalKind, int, int64, string, bool) {
	if !strings.HasPrefix(line, "DONE|") && !strings.HasPrefix(line, "ERR|") && !strings.HasPrefix(line, "NAK|") {
		return TerminalUnknown, 0, 0, "", false
	}
	kind, code, size, reason := ParseTerminal(line)
	if kind == TerminalUnknown {
		return TerminalUnknown, 0, 0, "", false
	}
	return kind, code, size, reason, true
}

func pushFile(conn net.Conn, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, UploadChunkBytes)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n < UploadChunkBytes {
			return nil
		}
	}
}

func pullFile(conn net.Conn, path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, DownloadChunkBytes)
	remaining := size
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := conn.Read(buf[:n])
		if read > 0 {
			if _, werr := f.Write(buf[:read]); werr != nil {
				return werr
			}
			remaining -= int64(read)
		}
		if err != nil {
			if err == io.EOF && remaining <= 0 {
				return nil
			}
			return err
		}
	}
	return nil
}
