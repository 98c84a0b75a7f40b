package warehouse

import (
	"log/slog"
	"time"

	"github.com/poutila/doxstrux-sub002/internal/timeout"
)

// Config controls admission limits and collector isolation for one warehouse.
type Config struct {
	// MaxTokens and MaxBytes are admission ceilings. Zero or negative
	// disables the check.
	MaxTokens int
	MaxBytes  int64

	// CollectorTimeout bounds every collector callback. Zero disables it.
	CollectorTimeout time.Duration

	// Guard runs collector callbacks. Nil selects timeout.Default().
	Guard timeout.Guard

	// Strict re-raises the first collector failure instead of recording it
	// and moving on. Intended for tests.
	Strict bool

	// Trace records every collector invocation during dispatch.
	Trace bool

	Logger *slog.Logger
}

// DefaultConfig returns production limits.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        500_000,
		MaxBytes:         10 << 20,
		CollectorTimeout: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.Guard == nil {
		c.Guard = timeout.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
