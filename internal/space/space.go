// Package space defines the tunable encode axes and enumerates legal,
// lock-constrained parameter combinations for the size search.
package space

import (
	"errors"
	"fmt"
)

// ErrInvalidBounds indicates axis bounds that cannot describe a legal space.
var ErrInvalidBounds = errors.New("invalid parameter bounds")

// Hard limits accepted by the encoder tools.
const (
	MaxQuality      = 100
	MaxDiffusion    = 200
	MaxFrameSkipCap = 8
)

// Direction selects which way Neighbors steps.
type Direction int

const (
	// TowardSmaller steps toward smaller output (lower quality score).
	TowardSmaller Direction = iota
	// TowardLarger steps toward larger output (higher quality score).
	TowardLarger
)

func (d Direction) String() string {
	switch d {
	case TowardSmaller:
		return "smaller"
	case TowardLarger:
		return "larger"
	default:
		return "unknown"
	}
}

// ParameterSet is one point in the search space. It is a comparable value
// and safe to use as a map key.
type ParameterSet struct {
	// Quality is the gifski palette quality, higher is better.
	Quality int
	// Diffusion is the gifsicle lossy amount, 0 disables it.
	Diffusion int
	// FrameSkip keeps every Nth source frame; 1 keeps all of them.
	FrameSkip int
}

// FrameRateFactor returns the fraction of source frames kept.
func (p ParameterSet) FrameRateFactor() float64 {
	if p.FrameSkip <= 1 {
		return 1.0
	}
	return 1.0 / float64(p.FrameSkip)
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("q=%d l=%d skip=%d", p.Quality, p.Diffusion, p.FrameSkip)
}

// Locks pins axes at their maximum-quality value.
type Locks struct {
	Quality   bool
	Diffusion bool
	FrameRate bool
}

// AllLocked reports whether no axis is left to search.
func (l Locks) AllLocked() bool {
	return l.Quality && l.Diffusion && l.FrameRate
}

// Config holds the axis bounds and step granularity.
type Config struct {
	QualityMin    int
	QualityMax    int
	QualityStep   int
	DiffusionMax  int
	DiffusionStep int
	FrameSkipMax  int
}

// DefaultConfig returns the bounds used by the CLI.
func DefaultConfig() Config {
	return Config{
		QualityMin:    50,
		QualityMax:    100,
		QualityStep:   5,
		DiffusionMax:  120,
		DiffusionStep: 20,
		FrameSkipMax:  4,
	}
}

// Validate checks the bounds for errors.
func (c Config) Validate() error {
	if c.QualityMax < 1 || c.QualityMax > MaxQuality {
		return fmt.Errorf("%w: quality max must be 1-%d, got %d", ErrInvalidBounds, MaxQuality, c.QualityMax)
	}
	if c.QualityMin < 1 || c.QualityMin > c.QualityMax {
		return fmt.Errorf("%w: quality min must be 1-%d, got %d", ErrInvalidBounds, c.QualityMax, c.QualityMin)
	}
	if c.QualityStep <= 0 {
		return fmt.Errorf("%w: quality step must be positive, got %d", ErrInvalidBounds, c.QualityStep)
	}
	if c.DiffusionMax < 0 || c.DiffusionMax > MaxDiffusion {
		return fmt.Errorf("%w: diffusion max must be 0-%d, got %d", ErrInvalidBounds, MaxDiffusion, c.DiffusionMax)
	}
	if c.DiffusionMax > 0 && c.DiffusionStep <= 0 {
		return fmt.Errorf("%w: diffusion step must be positive, got %d", ErrInvalidBounds, c.DiffusionStep)
	}
	if c.FrameSkipMax < 1 || c.FrameSkipMax > MaxFrameSkipCap {
		return fmt.Errorf("%w: frame skip max must be 1-%d, got %d", ErrInvalidBounds, MaxFrameSkipCap, c.FrameSkipMax)
	}
	return nil
}

// Space enumerates ParameterSets within bounds, honoring locks.
// A Space is immutable and safe for concurrent use.
type Space struct {
	cfg   Config
	locks Locks

	// Number of steps on each axis below its best value.
	qSteps int
	dSteps int
	fSteps int
}

// New creates a Space for the given bounds and locks.
func New(cfg Config, locks Locks) (*Space, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Space{cfg: cfg, locks: locks}
	s.qSteps = (cfg.QualityMax - cfg.QualityMin) / cfg.QualityStep
	if cfg.DiffusionMax > 0 {
		s.dSteps = cfg.DiffusionMax / cfg.DiffusionStep
	}
	s.fSteps = cfg.FrameSkipMax - 1
	return s, nil
}

// Config returns the bounds the space was built with.
func (s *Space) Config() Config {
	return s.cfg
}

// Locks returns the axis locks.
func (s *Space) Locks() Locks {
	return s.locks
}

// Baseline returns the maximum-quality point: best quality, no diffusion,
// full frame rate.
func (s *Space) Baseline() ParameterSet {
	return ParameterSet{
		Quality:   s.cfg.QualityMax,
		Diffusion: 0,
		FrameSkip: 1,
	}
}

// Minimum returns the most size-reductive legal point.
func (s *Space) Minimum() ParameterSet {
	p := s.Baseline()
	if !s.locks.Quality {
		p.Quality = s.cfg.QualityMax - s.qSteps*s.cfg.QualityStep
	}
	if !s.locks.Diffusion {
		p.Diffusion = s.dSteps * s.cfg.DiffusionStep
	}
	if !s.locks.FrameRate {
		p.FrameSkip = s.cfg.FrameSkipMax
	}
	return p
}

// Contains reports whether p is a legal point of this space, including lock
// pinning and step alignment.
func (s *Space) Contains(p ParameterSet) bool {
	ql, dl, fl, ok := s.levels(p)
	if !ok {
		return false
	}
	if s.locks.Quality && ql != 0 {
		return false
	}
	if s.locks.Diffusion && dl != 0 {
		return false
	}
	if s.locks.FrameRate && fl != 0 {
		return false
	}
	return true
}

// Clamp snaps p onto the nearest legal point, pinning locked axes and
// rounding each free axis to its step grid.
func (s *Space) Clamp(p ParameterSet) ParameterSet {
	out := s.Baseline()
	if !s.locks.Quality {
		q := min(max(p.Quality, s.cfg.QualityMax-s.qSteps*s.cfg.QualityStep), s.cfg.QualityMax)
		ql := (s.cfg.QualityMax - q + s.cfg.QualityStep/2) / s.cfg.QualityStep
		out.Quality = s.cfg.QualityMax - min(ql, s.qSteps)*s.cfg.QualityStep
	}
	if !s.locks.Diffusion && s.dSteps > 0 {
		d := min(max(p.Diffusion, 0), s.dSteps*s.cfg.DiffusionStep)
		dl := (d + s.cfg.DiffusionStep/2) / s.cfg.DiffusionStep
		out.Diffusion = min(dl, s.dSteps) * s.cfg.DiffusionStep
	}
	if !s.locks.FrameRate {
		out.FrameSkip = min(max(p.FrameSkip, 1), s.cfg.FrameSkipMax)
	}
	return out
}

// Size returns the number of legal points.
func (s *Space) Size() int {
	n := 1
	if !s.locks.Quality {
		n *= s.qSteps + 1
	}
	if !s.locks.Diffusion {
		n *= s.dSteps + 1
	}
	if !s.locks.FrameRate {
		n *= s.fSteps + 1
	}
	return n
}

// Score ranks a point by expected perceptual quality. Quality dominates,
// then diffusion, then frame rate, so distinct points never tie and the
// baseline always holds the maximum. Points outside the space score -1.
func (s *Space) Score(p ParameterSet) int {
	ql, dl, fl, ok := s.levels(p)
	if !ok {
		return -1
	}
	fSpan := s.fSteps + 1
	dSpan := s.dSteps + 1
	return (s.qSteps-ql)*dSpan*fSpan + (s.dSteps-dl)*fSpan + (s.fSteps - fl)
}

// Dominates reports whether a is at least as large as b on every axis:
// quality no lower, diffusion and frame skip no higher. An encode of a is
// expected to be no smaller than an encode of b.
func Dominates(a, b ParameterSet) bool {
	return a.Quality >= b.Quality && a.Diffusion <= b.Diffusion && a.FrameSkip <= b.FrameSkip
}

// Exhausted reports whether p cannot be stepped further toward smaller output.
func (s *Space) Exhausted(p ParameterSet) bool {
	return len(s.Neighbors(p, TowardSmaller)) == 0
}

// Neighbors returns the next candidates from cur in the given direction,
// most size-impactful axis first.
//
// Toward smaller output the frame rate is stepped first, then diffusion.
// Quality is only lowered once both of those axes are exhausted. Toward
// larger output the order is mirrored. Locked axes are never stepped.
// Points outside the space have no neighbors.
func (s *Space) Neighbors(cur ParameterSet, dir Direction) []ParameterSet {
	ql, dl, fl, ok := s.levels(cur)
	if !ok {
		return nil
	}

	canQ := !s.locks.Quality
	canD := !s.locks.Diffusion && s.dSteps > 0
	canF := !s.locks.FrameRate && s.fSteps > 0

	var out []ParameterSet
	switch dir {
	case TowardSmaller:
		frameLeft := canF && fl < s.fSteps
		diffLeft := canD && dl < s.dSteps
		if frameLeft {
			next := cur
			next.FrameSkip++
			out = append(out, next)
		}
		if diffLeft {
			next := cur
			next.Diffusion += s.cfg.DiffusionStep
			out = append(out, next)
		}
		if !frameLeft && !diffLeft && canQ && ql < s.qSteps {
			next := cur
			next.Quality -= s.cfg.QualityStep
			out = append(out, next)
		}
	case TowardLarger:
		qualityLeft := canQ && ql > 0
		diffLeft := canD && dl > 0
		if qualityLeft {
			next := cur
			next.Quality += s.cfg.QualityStep
			out = append(out, next)
		}
		if diffLeft {
			next := cur
			next.Diffusion -= s.cfg.DiffusionStep
			out = append(out, next)
		}
		if !qualityLeft && !diffLeft && canF && fl > 0 {
			next := cur
			next.FrameSkip--
			out = append(out, next)
		}
	}
	return out
}

// Raises returns every single-axis step from cur toward larger output, one
// per unlocked axis not already at its best value, regardless of where the
// other axes sit. Unlike Neighbors it can restore frame rate after quality
// has been lowered.
func (s *Space) Raises(cur ParameterSet) []ParameterSet {
	ql, dl, fl, ok := s.levels(cur)
	if !ok {
		return nil
	}

	var out []ParameterSet
	if !s.locks.Quality && ql > 0 {
		next := cur
		next.Quality += s.cfg.QualityStep
		out = append(out, next)
	}
	if !s.locks.Diffusion && dl > 0 {
		next := cur
		next.Diffusion -= s.cfg.DiffusionStep
		out = append(out, next)
	}
	if !s.locks.FrameRate && fl > 0 {
		next := cur
		next.FrameSkip--
		out = append(out, next)
	}
	return out
}

// levels converts p into step indices below the best value on each axis.
func (s *Space) levels(p ParameterSet) (ql, dl, fl int, ok bool) {
	qd := s.cfg.QualityMax - p.Quality
	if qd < 0 || qd%s.cfg.QualityStep != 0 {
		return 0, 0, 0, false
	}
	ql = qd / s.cfg.QualityStep
	if ql > s.qSteps {
		return 0, 0, 0, false
	}

	switch {
	case p.Diffusion == 0:
		dl = 0
	case s.dSteps == 0 || p.Diffusion < 0 || p.Diffusion%s.cfg.DiffusionStep != 0:
		return 0, 0, 0, false
	default:
		dl = p.Diffusion / s.cfg.DiffusionStep
		if dl > s.dSteps {
			return 0, 0, 0, false
		}
	}

	fl = p.FrameSkip - 1
	if fl < 0 || fl > s.fSteps {
		return 0, 0, 0, false
	}
	return ql, dl, fl, true
}
