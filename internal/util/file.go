package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SourceExtensions lists the file extensions accepted as conversion sources.
var SourceExtensions = map[string]bool{
	".mkv":  true,
	".avi":  true,
	".mp4":  true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".ogv":  true,
	".wmv":  true,
	".gif":  true,
	".apng": true,
}

// IsSourceFile checks if path is a regular file with a supported extension.
func IsSourceFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return SourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// GetFileStem returns the filename without extension.
func GetFileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// EnsureDirectory creates a directory if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// DirectoryExists checks if a directory exists.
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists checks if a regular file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ResolveOutputPath returns where the GIF for inputPath is written.
func ResolveOutputPath(inputPath, outputDir, filenameOverride string) string {
	if filenameOverride != "" {
		return filepath.Join(outputDir, filenameOverride)
	}
	return filepath.Join(outputDir, GetFileStem(inputPath)+".gif")
}

// OutputPathInfo is a resolved output argument.
type OutputPathInfo struct {
	OutputDir string
	// FilenameOverride is set when a single input is given an explicit .gif name.
	FilenameOverride string
}

// ResolveOutputArg splits the output argument into a directory and an
// optional filename. An output with a .gif extension is a filename only
// when the input is a single file.
func ResolveOutputArg(inputPath, outputPath string) (OutputPathInfo, error) {
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return OutputPathInfo{}, err
	}

	ext := strings.ToLower(filepath.Ext(outputPath))
	if inputInfo.IsDir() || ext == "" {
		return OutputPathInfo{OutputDir: outputPath}, nil
	}
	if ext != ".gif" {
		return OutputPathInfo{}, fmt.Errorf("output file must have a .gif extension, got %q", ext)
	}

	return OutputPathInfo{
		OutputDir:        filepath.Dir(outputPath),
		FilenameOverride: filepath.Base(outputPath),
	}, nil
}

// MoveFile renames src to dst, falling back to copy and remove across
// filesystems.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}
	return os.Remove(src)
}
