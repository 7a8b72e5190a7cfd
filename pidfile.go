package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	pidFilePerms = 0o644
	pidDirPerms  = 0o755
)

var errNoServer = errors.New("no running server")

// serverLock is the PID file held by a running `serve`. The flock, not
// the file's existence, is what keeps a second server out: a file left by
// a crashed server is simply re-locked.
type serverLock struct {
	path string
	f    *os.File
}

// acquireServerLock creates or reuses the PID file at path, locks it, and
// writes the current PID.
func acquireServerLock(path string) (*serverLock, error) {
	if path == "" {
		return nil, errors.New("cannot determine data directory for the server PID file")
	}

	if err := os.MkdirAll(filepath.Dir(path), pidDirPerms); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePerms)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if pid, pidErr := readServerPID(path); pidErr == nil {
			return nil, fmt.Errorf("a server is already running (PID %d, lock %s)", pid, path)
		}

		return nil, fmt.Errorf("a server is already running (could not lock %s)", path)
	}

	if err := writePID(f); err != nil {
		f.Close()
		return nil, err
	}

	return &serverLock{path: path, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}

	return nil
}

// Release removes the PID file and drops the lock.
func (l *serverLock) Release() {
	os.Remove(l.path)
	l.f.Close()
}

func readServerPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s: %q", path, strings.TrimSpace(string(data)))
	}

	return pid, nil
}

// liveServerPID returns the PID recorded at path if that process is alive.
// A PID file naming a dead process is removed and reported as errNoServer.
func liveServerPID(path string) (int, error) {
	if path == "" {
		return 0, errNoServer
	}

	pid, err := readServerPID(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w (no PID file at %s)", errNoServer, path)
	}

	if err != nil {
		return 0, err
	}

	proc, err := os.FindProcess(pid)
	if err == nil {
		err = proc.Signal(syscall.Signal(0))
	}

	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("%w (PID %d is gone, stale PID file removed)", errNoServer, pid)
	}

	return pid, nil
}

// signalServer delivers sig to the server recorded at path.
func signalServer(path string, sig syscall.Signal) error {
	pid, err := liveServerPID(path)
	if err != nil {
		return err
	}

	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("sending %s to server (PID %d): %w", sig, pid, err)
	}

	return nil
}
