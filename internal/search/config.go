// Package search drives the size-targeting session: it runs the baseline
// encode, explores parameter sets toward the target in batches, and picks
// the winning trial.
package search

import (
	"fmt"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/space"
)

// Defaults for the session budget.
const (
	DefaultBatchSize = 4
	DefaultMaxRounds = 24
)

// Config holds per-session search options.
type Config struct {
	Space space.Config
	Locks space.Locks

	// Workers caps concurrent encodes; zero picks a value from the host.
	Workers int
	// Serialize runs one encode at a time.
	Serialize bool
	// BatchSize caps the candidates dispatched per round.
	BatchSize int
	// MaxRounds caps the number of target search rounds.
	MaxRounds int
	// KeepPartial keeps the best fitting record when the session is cancelled.
	KeepPartial bool

	// Observer receives session events. Nil discards them.
	Observer Observer
}

// DefaultConfig returns the search defaults.
func DefaultConfig() Config {
	return Config{
		Space:     space.DefaultConfig(),
		BatchSize: DefaultBatchSize,
		MaxRounds: DefaultMaxRounds,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if err := c.Space.Validate(); err != nil {
		return gerrors.NewConfigError(err.Error())
	}
	if c.Workers < 0 {
		return gerrors.NewConfigError(fmt.Sprintf("workers must be >= 0, got %d", c.Workers))
	}
	if c.BatchSize < 1 {
		return gerrors.NewConfigError(fmt.Sprintf("batch size must be >= 1, got %d", c.BatchSize))
	}
	if c.MaxRounds < 1 {
		return gerrors.NewConfigError(fmt.Sprintf("max rounds must be >= 1, got %d", c.MaxRounds))
	}
	return nil
}

// ValidateTarget rejects non-positive targets. A nil target is allowed.
func ValidateTarget(target *int64) error {
	if target != nil && *target <= 0 {
		return gerrors.NewConfigError(fmt.Sprintf("target size must be positive, got %d", *target))
	}
	return nil
}
