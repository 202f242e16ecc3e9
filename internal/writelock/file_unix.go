//go:build unix

package writelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// File is a Backend shared by every process on the host that opens the
// same path. It uses advisory flock(2) locks, which the kernel drops if
// the holder exits.
type File struct {
	path string
	poll time.Duration
}

// NewFile creates a File backend locking path. The file is created on
// first use and never removed.
func NewFile(path string) *File {
	return &File{path: path, poll: DefaultPollInterval}
}

// Path returns the lock file path.
func (l *File) Path() string {
	return l.path
}

// Lock implements Backend. Each call opens its own descriptor, so two
// handles in one process exclude each other as well.
func (l *File) Lock(ctx context.Context) (UnlockFunc, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", l.path, err)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return onceUnlock(func(context.Context) error {
		unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		closeErr := f.Close()
		return errors.Join(unlockErr, closeErr)
	}), nil
}
