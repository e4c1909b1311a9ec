package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangecodee/SHL-TASK/internal/profile"
)

func TestStartReportsListenerError(t *testing.T) {
	// Occupy a port so the server's own listener must fail.
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer blocker.Close()
	port := blocker.Addr().(*net.TCPAddr).Port

	p := &profile.Profile{Mode: "dev", Addr: "127.0.0.1", Port: port}
	ctx := context.Background()
	s, err := NewServer(ctx, p, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx))

	// The failure must arrive on Err so the caller can run its shutdown
	// path; the process must not exit.
	select {
	case err := <-s.Err():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener error was not reported")
	}

	s.Shutdown(ctx)
}

func TestStartAndShutdown(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := blocker.Addr().(*net.TCPAddr).Port
	require.NoError(t, blocker.Close())

	p := &profile.Profile{Mode: "dev", Addr: "127.0.0.1", Port: port}
	ctx := context.Background()
	s, err := NewServer(ctx, p, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx))
	s.Shutdown(ctx)

	select {
	case err := <-s.Err():
		t.Fatalf("clean shutdown must not report an error, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}
