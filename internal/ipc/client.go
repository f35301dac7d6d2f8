package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Status asks the listener bound to path for its snapshot.
// It returns ErrNotRunning when nothing owns the socket.
func Status(ctx context.Context, path string, timeout time.Duration) (Snapshot, error) {
	resp, err := query(ctx, path, CommandStatus, timeout)
	if err != nil {
		if noListener(err) {
			return Snapshot{}, ErrNotRunning
		}
		return Snapshot{}, err
	}
	if !resp.OK {
		return Snapshot{}, fmt.Errorf("status: %s", resp.Error)
	}
	return resp.Snapshot, nil
}

// listenerAlive reports whether a listener answers on path. A socket that
// accepts but never replies is neither alive nor stale and yields an error.
func listenerAlive(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := query(ctx, path, CommandStatus, timeout)
	switch {
	case err == nil:
		return true, nil
	case noListener(err):
		return false, nil
	default:
		return false, err
	}
}

func query(ctx context.Context, path, command string, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := json.NewEncoder(conn).Encode(Request{Command: command}); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", command, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read %s reply: %w", command, err)
	}
	return resp, nil
}

// noListener matches a missing socket file or one nobody accepts on.
func noListener(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
