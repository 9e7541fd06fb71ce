package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestWaitForShutdown_ReturnsOnServerError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	serverErrCh := make(chan error, 1)
	serverErrCh <- errors.New("listen tcp :8086: address already in use")

	done := make(chan struct{})
	go func() {
		waitForShutdown(make(chan os.Signal), serverErrCh, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitForShutdown did not return on a server error")
	}
}

func TestWaitForShutdown_ReturnsOnSignal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	done := make(chan struct{})
	go func() {
		waitForShutdown(sigCh, make(chan error), logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitForShutdown did not return on a termination signal")
	}
}
