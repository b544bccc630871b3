package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempDir is a temporary working directory removed by Cleanup.
type TempDir struct {
	path string
}

// CreateTempDir creates a directory named "<prefix>_*" under baseDir.
func CreateTempDir(baseDir, prefix string) (*TempDir, error) {
	path, err := os.MkdirTemp(baseDir, prefix+"_")
	if err != nil {
		return nil, err
	}
	return &TempDir{path: path}, nil
}

// Path returns the directory path.
func (d *TempDir) Path() string {
	return d.path
}

// Cleanup removes the directory and everything in it.
func (d *TempDir) Cleanup() error {
	return os.RemoveAll(d.path)
}

// CreateTempFilePath returns an unused "<prefix>_*.<ext>" path in dir
// without creating the file.
func CreateTempFilePath(dir, prefix, ext string) (string, error) {
	f, err := os.CreateTemp(dir, prefix+"_*."+ext)
	if err != nil {
		return "", err
	}
	path := f.Name()
	_ = f.Close()
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return path, nil
}

// CleanupStaleTempFiles removes entries in dir starting with "<prefix>_"
// that are older than maxAge. A missing dir is not an error.
func CleanupStaleTempFiles(dir, prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	count := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix+"_") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err == nil {
			count++
		}
	}
	return count, nil
}

// EnsureDirectoryWritable verifies path is an existing writable directory.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	probe, err := os.CreateTemp(path, ".gifsizer_write_test_*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
