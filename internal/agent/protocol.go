// Package agent implements the length-unprefixed, ASCII pipe-delimited
// wire protocol spoken between the controller's agent host worker and the
// agent daemon running on a remote encode box. See protocol.go for the
// greeting and terminal message grammar.
package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPort is the TCP port the agent daemon listens on.
const DefaultPort = 9567

// ProtocolVersion is the current greeting protocol version. A HELLO/HELLOS
// greeting that omits it (the legacy 5-field form) is rejected with
// "NAK|outdated client" rather than guessed at.
const ProtocolVersion = "1"

// Control tokens exchanged during the STREAM phase.
const (
	MsgPing = "PING"
	MsgPong = "PONG"
	MsgAck  = "ACK!"
	MsgStop = "STOP"
	MsgVeto = "VETO"
)

// UploadChunkBytes is the chunk size used when pushing the source file to
// the agent for the file-transfer (HELLO) variant.
const UploadChunkBytes = 4096

// DownloadChunkBytes is the chunk size used when retrieving the encoded
// result from the agent for the file-transfer (HELLO) variant.
const DownloadChunkBytes = 1_000_000

// HelloGreeting is the file-transfer greeting: the controller uploads the
// source file and downloads the result.
type HelloGreeting struct {
	Version    string
	FileSize   int64
	TempDir    string
	FileName   string
	CommandStr string // '$'-joined argv, with "{FILENAME}" standing in for the uploaded path
}

// HelloSharedGreeting is the shared-mount greeting: both ends already see
// the same filesystem, so only paths cross the wire.
type HelloSharedGreeting struct {
	Version    string
	SharedIn   string
	SharedOut  string
	CommandStr string
	KeepSource bool
}

// EncodeHello renders a HelloGreeting as its wire form.
func EncodeHello(g HelloGreeting) string {
	return strings.Join([]string{"HELLO", g.Version, strconv.FormatInt(g.FileSize, 10), g.TempDir, g.FileName, g.CommandStr}, "|")
}

// EncodeHelloShared renders a HelloSharedGreeting as its wire form.
func EncodeHelloShared(g HelloSharedGreeting) string {
	keep := "0"
	if g.KeepSource {
		keep = "1"
	}
	return strings.Join([]string{"HELLOS", g.Version, g.SharedIn, g.SharedOut, g.CommandStr, keep}, "|")
}

// errOutdatedClient is returned for any greeting shorter than the current
// 6-field form, or whose tag does not match the parser.
var errOutdatedClient = fmt.Errorf("NAK|outdated client")

// ParseHello parses a HELLO greeting line into a HelloGreeting.
func ParseHello(line string) (HelloGreeting, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 6 || parts[0] != "HELLO" {
		return HelloGreeting{}, errOutdatedClient
	}
	size, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return HelloGreeting{}, fmt.Errorf("NAK|invalid filesize %q", parts[2])
	}
	return HelloGreeting{
		Version:    parts[1],
		FileSize:   size,
		TempDir:    parts[3],
		FileName:   parts[4],
		CommandStr: parts[5],
	}, nil
}

// ParseHelloShared parses a HELLOS greeting line into a HelloSharedGreeting.
func ParseHelloShared(line string) (HelloSharedGreeting, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 6 || parts[0] != "HELLOS" {
		return HelloSharedGreeting{}, errOutdatedClient
	}
	return HelloSharedGreeting{
		Version:    parts[1],
		SharedIn:   parts[2],
		SharedOut:  parts[3],
		CommandStr: parts[4],
		KeepSource: parts[5] == "1",
	}, nil
}

// IsOutdatedClient reports whether err is the "outdated client" greeting
// rejection.
func IsOutdatedClient(err error) bool {
	return err != nil && err.Error() == errOutdatedClient.Error()
}

// EncodeDone renders the successful terminal message: exit code and result
// file size.
func EncodeDone(exitCode int, resultSize int64) string {
	return fmt.Sprintf("DONE|%d|%d", exitCode, resultSize)
}

// EncodeErr renders the failed terminal message: the encoder's exit code.
func EncodeErr(exitCode int) string {
	return fmt.Sprintf("ERR|%d", exitCode)
}

// EncodeNak renders a negative-acknowledgement message with a reason.
func EncodeNak(reason string) string {
	return fmt.Sprintf("NAK|%s", reason)
}

// TerminalKind distinguishes the three terminal message shapes.
type TerminalKind int

// Terminal message kinds
const (
	TerminalUnknown TerminalKind = iota
	TerminalDone
	TerminalErr
	TerminalNak
)

// ParseTerminal parses a DONE|/ERR|/NAK| terminal line.
func ParseTerminal(line string) (kind TerminalKind, exitCode int, resultSize int64, reason string) {
	parts := strings.Split(line, "|")
	if len(parts) == 0 {
		return TerminalUnknown, 0, 0, ""
	}
	switch parts[0] {
	case "DONE":
		if len(parts) != 3 {
			return TerminalUnknown, 0, 0, ""
		}
		exitCode, _ = strconv.Atoi(parts[1])
		resultSize, _ = strconv.ParseInt(parts[2], 10, 64)
		return TerminalDone, exitCode, resultSize, ""
	case "ERR":
		if len(parts) != 2 {
			return TerminalUnknown, 0, 0, ""
		}
		exitCode, _ = strconv.Atoi(parts[1])
		return TerminalErr, exitCode, 0, ""
	case "NAK":
		reason = strings.Join(parts[1:], "|")
		return TerminalNak, 0, 0, reason
	default:
		return TerminalUnknown, 0, 0, ""
	}
}

// SplitCommand splits a '$'-joined command string back into argv,
// substituting the uploaded file's path for the "{FILENAME}" placeholder.
// The placeholder substitution is a no-op when filename is empty (the
// HELLOS variant, where the agent has direct filesystem access).
func SplitCommand(cmdStr, filename string) []string {
	parts := strings.Split(cmdStr, "$")
	if filename == "" {
		return parts
	}
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "{FILENAME}", filename)
	}
	return parts
}
