package writelock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Handle is one worker's reentrant view of a Backend.
//
// Reentrancy is per Handle, not per goroutine: every caller sharing a
// Handle is treated as the same owner. Give each worker its own Handle.
type Handle struct {
	backend Backend
	owner   string
	logger  *slog.Logger

	mu       sync.Mutex
	depth    int
	unlock   UnlockFunc
	acquired time.Time
}

// HandleOption configures a Handle.
type HandleOption func(*handleConfig)

type handleConfig struct {
	owners OwnerGenerator
	logger *slog.Logger
}

// WithOwnerGenerator sets the owner token source. Defaults to UUIDv7Generator.
func WithOwnerGenerator(gen OwnerGenerator) HandleOption {
	return func(c *handleConfig) {
		c.owners = gen
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) HandleOption {
	return func(c *handleConfig) {
		c.logger = logger
	}
}

// NewHandle creates an unheld Handle over backend.
func NewHandle(backend Backend, opts ...HandleOption) *Handle {
	cfg := handleConfig{owners: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handle{
		backend: backend,
		owner:   cfg.owners.Generate(),
		logger:  cfg.logger,
	}
}

// Acquire takes the lock, blocking until it is available or ctx is done.
// If this Handle already holds the lock it returns immediately.
func (h *Handle) Acquire(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth > 0 {
		h.depth++
		return nil
	}

	start := time.Now()
	unlock, err := h.backend.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire write lock (owner %s): %w", h.owner, err)
	}
	waited := time.Since(start)
	lockWait.Observe(waited.Seconds())
	lockHeld.Inc()

	h.unlock = unlock
	h.depth = 1
	h.acquired = time.Now()
	h.logger.Debug("write lock acquired", "owner", h.owner, "waited", waited)
	return nil
}

// Release undoes one Acquire. The backend lock is released when the
// outermost Acquire is undone. Returns ErrNotHeld if the Handle does not
// hold the lock.
func (h *Handle) Release(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth == 0 {
		return ErrNotHeld
	}
	h.depth--
	if h.depth > 0 {
		return nil
	}

	unlock := h.unlock
	h.unlock = nil
	lockHeld.Dec()
	h.logger.Debug("write lock released", "owner", h.owner, "held", time.Since(h.acquired))
	if err := unlock(ctx); err != nil {
		return fmt.Errorf("release write lock (owner %s): %w", h.owner, err)
	}
	return nil
}

// Held reports whether this Handle holds the lock.
func (h *Handle) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth > 0
}

// Depth returns the current nesting depth; 0 when not held.
func (h *Handle) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth
}

// Owner returns the Handle's owner token.
func (h *Handle) Owner() string {
	return h.owner
}
