//go:build !unix

package writelock

import (
	"context"
	"errors"
	"time"
)

// File is unavailable on this platform; Lock always fails.
type File struct {
	path string
	poll time.Duration
}

// NewFile creates a File backend. Lock returns errors.ErrUnsupported here.
func NewFile(path string) *File {
	return &File{path: path, poll: DefaultPollInterval}
}

// Path returns the lock file path.
func (l *File) Path() string {
	return l.path
}

// Lock implements Backend.
func (l *File) Lock(context.Context) (UnlockFunc, error) {
	return nil, errors.ErrUnsupported
}
