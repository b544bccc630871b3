package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPreset indicates an unknown preset name was provided.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrInvalidScale indicates a scale percentage outside 1-100.
	ErrInvalidScale = errors.New("scale percent out of range")

	// ErrInvalidLoopCount indicates a negative loop count.
	ErrInvalidLoopCount = errors.New("loop count out of range")

	// ErrInvalidSearch indicates invalid search budget or bounds.
	ErrInvalidSearch = errors.New("search configuration invalid")

	// ErrMissingTool indicates an external tool path is empty.
	ErrMissingTool = errors.New("tool path missing")
)
