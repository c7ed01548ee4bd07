package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeParseHelloRoundTrip(t *testing.T) {
	g := HelloGreeting{Version: ProtocolVersion, FileSize: 12345, TempDir: "/tmp/x", FileName: "movie.mkv", CommandStr: "ffmpeg$-i${FILENAME}"}
	line := EncodeHello(g)
	got, err := ParseHello(line)
	assert.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestEncodeParseHelloSharedRoundTrip(t *testing.T) {
	g := HelloSharedGreeting{Version: ProtocolVersion, SharedIn: "/mnt/in.mkv", SharedOut: "/mnt/out.mkv", CommandStr: "ffmpeg$-i$/mnt/in.mkv", KeepSource: true}
	line := EncodeHelloShared(g)
	got, err := ParseHelloShared(line)
	assert.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestParseHelloRejectsOutdatedGreeting(t *testing.T) {
	_, err := ParseHello("HELLO|12345|/tmp|movie.mkv|ffmpeg")
	assert.Error(t, err)
	assert.True(t, IsOutdatedClient(err))
}

func TestParseHelloSharedRejectsOutdatedGreeting(t *testing.T) {
	_, err := ParseHelloShared("HELLOS|/in|/out|ffmpeg")
	assert.Error(t, err)
	assert.True(t, IsOutdatedClient(err))
}

func TestParseHelloWrongTag(t *testing.T) {
	_, err := ParseHello("PING|1|2|3|4|5")
	assert.Error(t, err)
}

func TestParseTerminalDone(t *testing.T) {
	kind, exitCode, size, reason := ParseTerminal(EncodeDone(0, 98765))
	assert.Equal(t, TerminalDone, kind)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, int64(98765), size)
	assert.Empty(t, reason)
}

func TestParseTerminalErr(t *testing.T) {
	kind, exitCode, _, _ := ParseTerminal(EncodeErr(1))
	assert.Equal(t, TerminalErr, kind)
	assert.Equal(t, 1, exitCode)
}

func TestParseTerminalNak(t *testing.T) {
	kind, _, _, reason := ParseTerminal(EncodeNak("outdated client"))
	assert.Equal(t, TerminalNak, kind)
	assert.Equal(t, "outdated client", reason)
}

func TestParseTerminalMalformedDone(t *testing.T) {
	kind, _, _, _ := ParseTerminal("DONE|0")
	assert.Equal(t, TerminalUnknown, kind)
}

func TestParseTerminalUnknownTag(t *testing.T) {
	kind, _, _, _ := ParseTerminal("WAT|1|2")
	assert.Equal(t, TerminalUnknown, kind)
}

func TestSplitCommandSubstitutesFilename(t *testing.T) {
	argv := SplitCommand("ffmpeg$-i${FILENAME}$-y$out.mkv", "/tmp/in.mkv")
	assert.Equal(t, []string{"ffmpeg", "-i", "/tmp/in.mkv", "-y", "out.mkv"}, argv)
}

func TestSplitCommandNoSubstitutionWhenFilenameEmpty(t *testing.T) {
	argv := SplitCommand("ffmpeg$-i${FILENAME}", "")
	assert.Equal(t, []string{"ffmpeg", "-i", "{FILENAME}"}, argv)
}
