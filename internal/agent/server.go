package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server is the agent daemon: it accepts one TCP connection per job and
// drives the encoder on the controller's behalf.
type Server struct {
	Addr   string
	Logger zerolog.Logger
}

// NewServer constructs a Server bound to addr (typically
// fmt.Sprintf(":%d", DefaultPort)).
func NewServer(addr string, logger zerolog.Logger) *Server {
	return &Server{Addr: addr, Logger: logger}
}

// ListenAndServe accepts connections until ctx is cancelled, dispatching
// each to its own goroutine tagged with a random worker id. Concurrency is
// unbounded: the controller is responsible for not oversubscribing a host.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("agent: listen on %s: %w", s.Addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.Logger.Info().Str("addr", s.Addr).Msg("agent listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("agent: accept: %w", err)
			}
		}
		workerID := uuid.NewString()
		go s.handleConn(ctx, workerID, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, workerID string, conn net.Conn) {
	log := s.Logger.With().Str("worker", workerID).Str("remote", conn.RemoteAddr().String()).Logger()
	defer conn.Close()

	greeting, err := readGreeting(conn)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read greeting")
		return
	}
	log.Debug().Str("greeting", greeting).Msg("received greeting")

	if greeting == MsgPing {
		_, _ = conn.Write([]byte(MsgPong))
		return
	}

	switch {
	case strings.HasPrefix(greeting, "HELLO|"):
		s.runHello(ctx, log, conn, greeting)
	case strings.HasPrefix(greeting, "HELLOS|"):
		s.runHelloShared(ctx, log, conn, greeting)
	default:
		_, _ = conn.Write([]byte(EncodeNak("unrecognized greeting")))
	}
}

func (s *Server) runHello(ctx context.Context, log zerolog.Logger, conn net.Conn, greeting string) {
	hello, err := ParseHello(greeting)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting HELLO greeting")
		_, _ = conn.Write([]byte(err.Error()))
		return
	}

	if _, err := conn.Write([]byte(greeting)); err != nil {
		log.Warn().Err(err).Msg("failed to echo greeting")
		return
	}

	outputFilename := filepath.Join(hello.TempDir, hello.FileName)
	if err := receiveFile(conn, hello.FileSize, outputFilename); err != nil {
		log.Error().Err(err).Msg("failed to receive uploaded file")
		return
	}
	defer os.Remove(outputFilename)

	tmpFilename := outputFilename + ".tmp"
	argv := SplitCommand(hello.CommandStr, outputFilename)
	argv = append(argv, tmpFilename)

	s.runEncodeAndReply(ctx, log, conn, argv, false, tmpFilename, "", "", false)
}

func (s *Server) runHelloShared(ctx context.Context, log zerolog.Logger, conn net.Conn, greeting string) {
	hello, err := ParseHelloShared(greeting)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting HELLOS greeting")
		_, _ = conn.Write([]byte(err.Error()))
		return
	}

	if reason := checkSharedPaths(hello.SharedIn, hello.SharedOut); reason != "" {
		log.Warn().Str("reason", reason).Msg("rejecting HELLOS paths")
		_, _ = conn.Write([]byte(EncodeNak(reason)))
		return
	}

	if _, err := conn.Write([]byte(greeting)); err != nil {
		log.Warn().Err(err).Msg("failed to echo greeting")
		return
	}

	argv := SplitCommand(hello.CommandStr, "")

	s.runEncodeAndReply(ctx, log, conn, argv, true, "", hello.SharedIn, hello.SharedOut, hello.KeepSource)
}

// checkSharedPaths verifies the shared input is readable and the shared
// output's directory is writable, returning a NAK reason on failure ("" on
// success). Called before EXEC so a bad mount never reaches the encoder.
func checkSharedPaths(sharedIn, sharedOut string) string {
	f, err := os.Open(sharedIn)
	if err != nil {
		return "shared input not readable: " + err.Error()
	}
	f.Close()

	probe, err := os.CreateTemp(filepath.Dir(sharedOut), ".wandarr-writetest-*")
	if err != nil {
		return "shared output not writable: " + err.Error()
	}
	probe.Close()
	os.Remove(probe.Name())
	return ""
}

// runEncodeAndReply drives the encoder process and plays out the
// STREAM/terminal phases. For the shared-mount variant, a successful,
// non-vetoed, non-keep-source run replaces the source in place by removing
// it and renaming the output over it.
func (s *Server) runEncodeAndReply(ctx context.Context, log zerolog.Logger, conn net.Conn, argv []string, shared bool, tmpFilename, sharedIn, sharedOut string, keepSource bool) {
	if len(argv) == 0 {
		_, _ = conn.Write([]byte(EncodeNak("empty command")))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_, _ = conn.Write([]byte(EncodeNak("failed to start encoder: " + err.Error())))
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cmd.Wait()
		_ = pw.Close()
	}()

	vetoed := s.streamLoop(log, conn, pr, cancel)
	<-done

	if vetoed {
		log.Info().Msg("transcode vetoed by controller")
		return
	}

	exitCode := cmd.ProcessState.ExitCode()
	if exitCode != 0 {
		log.Warn().Int("exit_code", exitCode).Msg("encoder exited non-zero")
		_, _ = conn.Write([]byte(EncodeErr(exitCode)))
		return
	}

	var resultSize int64
	var statPath string
	if shared {
		statPath = sharedOut
	} else {
		statPath = tmpFilename
	}
	if info, err := os.Stat(statPath); err == nil {
		resultSize = info.Size()
	}

	if _, err := conn.Write([]byte(EncodeDone(exitCode, resultSize) + "\n")); err != nil {
		log.Error().Err(err).Msg("failed to send DONE")
		return
	}

	ack := make([]byte, 4)
	if _, err := io.ReadFull(conn, ack); err != nil || string(ack) != MsgAck {
		log.Warn().Str("response", string(ack)).Msg("expected ACK after DONE")
		return
	}

	if shared {
		if !keepSource {
			if err := os.Remove(sharedIn); err != nil {
				log.Warn().Err(err).Msg("failed to remove shared source before promotion")
			}
			if err := os.Rename(sharedOut, sharedIn); err != nil {
				log.Error().Err(err).Msg("failed to promote shared output into place")
			}
		}
		return
	}

	if err := sendFile(conn, tmpFilename); err != nil {
		log.Error().Err(err).Msg("failed to send result file")
	}
	_ = os.Remove(tmpFilename)
}

// streamLoop relays the encoder's merged stdout/stderr line by line,
// stopping (without forwarding) at the "video:" summary line ffmpeg emits
// on completion, and honoring ACK!/PING/STOP/VETO control tokens from the
// controller after each forwarded line. Returns true if the controller
// vetoed or stopped the run, or the controller sent anything else (a
// protocol violation also aborts the run).
func (s *Server) streamLoop(log zerolog.Logger, conn net.Conn, stdout io.Reader, cancel context.CancelFunc) bool {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "video:") {
			return false
		}

		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			log.Warn().Err(err).Msg("failed to forward encoder line")
			cancel()
			return true
		}

		tok := make([]byte, 4)
		if _, err := io.ReadFull(conn, tok); err != nil {
			cancel()
			return true
		}
		switch string(tok) {
		case MsgAck:
			continue
		case MsgPing:
			continue
		case MsgStop, MsgVeto:
			cancel()
			return true
		default:
			log.Warn().Str("token", string(tok)).Msg("protocol violation: expected ACK/PING/STOP/VETO")
			cancel()
			return true
		}
	}
	return false
}

func readGreeting(conn net.Conn) (string, error) {
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

func receiveFile(conn net.Conn, size int64, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, UploadChunkBytes)
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
				break
			}
			return err
		}
	}
	return nil
}

func sendFile(conn net.Conn, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, DownloadChunkBytes)
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
	}
}
