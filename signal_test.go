package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestShutdownContext_FirstSignalCancels(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx := shutdownContext(parent, quietLogger())

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled within 2 seconds of SIGINT")
	}
}

func TestShutdownContext_ParentCancelStopsGoroutine(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	ctx := shutdownContext(parent, quietLogger())

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled within 2 seconds of parent cancel")
	}
}

// Not parallel: SIGHUP delivery is process-wide.
func TestOnSIGHUP_CallsFnUntilCanceled(t *testing.T) {
	// Keep SIGHUP from terminating the test binary before onSIGHUP registers.
	guard := make(chan os.Signal, 8)
	signal.Notify(guard, syscall.SIGHUP)

	defer signal.Stop(guard)

	ctx, cancel := context.WithCancel(context.Background())

	called := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		onSIGHUP(ctx, quietLogger(), func() {
			select {
			case called <- struct{}{}:
			default:
			}
		})
	}()

	// onSIGHUP registers asynchronously; resend until it answers.
	require.Eventually(t, func() bool {
		if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
			return false
		}

		select {
		case <-called:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}
