package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDLock is a single-instance lock implemented via a PID file + flock(2).
// Keep the lock alive by keeping the file descriptor open. The file records
// "pid;hostname" so an operator can tell which process on which machine
// holds the daemon lock.
type PIDLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock at lockPath, writes the
// current PID and hostname into the file, and returns a handle that must be
// released. A second daemon instance gets an error instead of blocking.
func Acquire(lockPath string) (*PIDLock, error) {
	if lockPath == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if pid, host, herr := Holder(lockPath); herr == nil {
			return nil, fmt.Errorf("acquire lock: held by pid %d on %s", pid, host)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	if err := f.Truncate(0); err != nil {
		return nil, releaseOnErr(f, fmt.Errorf("truncate lock file: %w", err))
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, releaseOnErr(f, fmt.Errorf("seek lock file: %w", err))
	}
	if _, err := fmt.Fprintf(f, "%d;%s\n", os.Getpid(), hostname); err != nil {
		return nil, releaseOnErr(f, fmt.Errorf("write lock file: %w", err))
	}
	if err := f.Sync(); err != nil {
		return nil, releaseOnErr(f, fmt.Errorf("sync lock file: %w", err))
	}

	return &PIDLock{path: lockPath, f: f}, nil
}

func releaseOnErr(f *os.File, err error) error {
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	_ = f.Close()
	return err
}

// Holder reads the pid and hostname recorded in an existing lock file.
func Holder(lockPath string) (pid int, hostname string, err error) {
	b, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, "", err
	}
	parts := strings.SplitN(strings.TrimSpace(string(b)), ";", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed lock file %s", lockPath)
	}
	pid, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("malformed pid in lock file %s: %w", lockPath, err)
	}
	return pid, parts[1], nil
}

func (l *PIDLock) Path() string { return l.path }

// Release unlocks and closes the lock file. The file itself is left in
// place; the next Acquire truncates it.
func (l *PIDLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
