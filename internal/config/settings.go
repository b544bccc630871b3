package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// SettingsFileName is the name of the persisted options file.
	SettingsFileName = "settings.json"
	// HistoryFileName is the name of the trial history database.
	HistoryFileName = "history.db"
)

// Settings are the persisted user options. Pointer fields distinguish an
// unset option from its zero value.
type Settings struct {
	LockQuality   *bool `json:"lock_quality,omitempty"`
	LockDiffusion *bool `json:"lock_lossy,omitempty"`
	LockFrameRate *bool `json:"lock_frame_skip,omitempty"`
	PreserveAlpha *bool `json:"preserve_animated_alpha,omitempty"`
	LoopCount     *int  `json:"loop_count,omitempty"`
	ScalePercent  *int  `json:"scale,omitempty"`

	// UseImageMagick enables the final ImageMagick pass.
	UseImageMagick *bool `json:"use_imagemagick,omitempty"`
}

// DefaultSettingsPath returns the settings file under the user config dir.
func DefaultSettingsPath() (string, error) {
	return userConfigPath(SettingsFileName)
}

// DefaultHistoryPath returns the history database under the user config dir.
func DefaultHistoryPath() (string, error) {
	return userConfigPath(HistoryFileName)
}

func userConfigPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "gifsizer", name), nil
}

// LoadSettings reads settings from path. A missing file yields empty settings.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes settings to path, creating the parent directory.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// ApplySettings overrides config fields with every option set in s.
func (c *Config) ApplySettings(s Settings) {
	if s.LockQuality != nil {
		c.LockQuality = *s.LockQuality
	}
	if s.LockDiffusion != nil {
		c.LockDiffusion = *s.LockDiffusion
	}
	if s.LockFrameRate != nil {
		c.LockFrameRate = *s.LockFrameRate
	}
	if s.PreserveAlpha != nil {
		c.PreserveAlpha = *s.PreserveAlpha
	}
	if s.LoopCount != nil {
		c.LoopCount = *s.LoopCount
	}
	if s.ScalePercent != nil {
		c.ScalePercent = *s.ScalePercent
	}
	if s.UseImageMagick != nil {
		c.UseImageMagick = *s.UseImageMagick
	}
}

// Settings captures the persistable options of c.
func (c *Config) Settings() Settings {
	return Settings{
		LockQuality:   ptr(c.LockQuality),
		LockDiffusion: ptr(c.LockDiffusion),
		LockFrameRate: ptr(c.LockFrameRate),
		PreserveAlpha: ptr(c.PreserveAlpha),
		LoopCount:     ptr(c.LoopCount),
		ScalePercent:  ptr(c.ScalePercent),

		UseImageMagick: ptr(c.UseImageMagick),
	}
}

func ptr[T any](v T) *T { return &v }
