package agent

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServerPingLiveness(t *testing.T) {
	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(addr, zerolog.Nop())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// give the listener a moment to bind
	time.Sleep(50 * time.Millisecond)

	client := NewClient(addr, zerolog.Nop())
	require.True(t, client.Ping())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestClientPingUnreachable(t *testing.T) {
	client := NewClient("127.0.0.1:1", zerolog.Nop())
	require.False(t, client.Ping())
}

func TestRunSharedNaksUnreadableInput(t *testing.T) {
	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(addr, zerolog.Nop())
	go func() { _ = srv.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)

	client := NewClient(addr, zerolog.Nop())
	_, err := client.RunShared(ctx, "/no/such/input.mkv", "/no/such/output.mkv", []string{"ffmpeg"}, false, nil)
	require.Error(t, err)
}
