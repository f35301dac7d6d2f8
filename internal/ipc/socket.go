package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Acquire when another listener answers on the socket.
	ErrAlreadyRunning = errors.New("mojify listener already running")
	// ErrNotRunning is returned by Status when nothing is listening.
	ErrNotRunning = errors.New("mojify listener is not running")
)

const socketName = "mojify.sock"

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/mojify.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// Socket is the bound single-instance socket. Closing it also removes the socket file.
type Socket struct {
	net.Listener

	path     string
	mu       sync.Mutex
	closed   bool
	closeErr error
}

// Path returns the filesystem path the socket is bound to.
func (s *Socket) Path() string { return s.path }

// Close stops accepting and unlinks the socket file; repeated calls return the first result.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closeErr
	}
	s.closed = true

	err := s.Listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = fmt.Errorf("remove socket %s: %w", s.path, rmErr)
	}
	s.closeErr = err
	return err
}

// Acquire binds path for this listener. A socket left behind by a dead
// listener is unlinked and the bind retried; a live one yields ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, aliveTimeout time.Duration, retries int) (*Socket, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Socket{Listener: listener, path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, aliveErr := listenerAlive(ctx, path, aliveTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if aliveErr != nil {
			return nil, fmt.Errorf("check existing socket %s: %w", path, aliveErr)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("socket %s still in use after %d retries", path, retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}
