package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnsureDirectoryWritable(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureDirectoryWritable(tmpDir); err != nil {
		t.Errorf("Expected no error for writable dir, got %v", err)
	}

	if err := EnsureDirectoryWritable("/nonexistent/directory/path"); err == nil {
		t.Error("Expected error for non-existent directory")
	}

	tmpFile := filepath.Join(tmpDir, "testfile")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirectoryWritable(tmpFile); err == nil {
		t.Error("Expected error for file instead of directory")
	}
}

func TestCreateTempDir(t *testing.T) {
	baseDir := t.TempDir()

	tempDir, err := CreateTempDir(baseDir, "frames")
	if err != nil {
		t.Fatalf("CreateTempDir failed: %v", err)
	}

	info, err := os.Stat(tempDir.Path())
	if err != nil || !info.IsDir() {
		t.Fatalf("Temp directory not created: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(tempDir.Path()), "frames_") {
		t.Errorf("Directory name should start with 'frames_', got %s", filepath.Base(tempDir.Path()))
	}

	path := tempDir.Path()
	if err := os.WriteFile(filepath.Join(path, "f.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tempDir.Cleanup(); err != nil {
		t.Errorf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Directory should be removed after cleanup")
	}
}

func TestCreateTempFilePath(t *testing.T) {
	baseDir := t.TempDir()

	path, err := CreateTempFilePath(baseDir, "trial", "gif")
	if err != nil {
		t.Fatalf("CreateTempFilePath failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should not exist yet")
	}
	if !strings.HasPrefix(filepath.Base(path), "trial_") {
		t.Errorf("Path name should start with 'trial_', got %s", filepath.Base(path))
	}
	if filepath.Ext(path) != ".gif" {
		t.Errorf("Path should have .gif extension, got %s", filepath.Ext(path))
	}
	if filepath.Dir(path) != baseDir {
		t.Errorf("Path should be in %s, got %s", baseDir, filepath.Dir(path))
	}
}

func TestCleanupStaleTempFiles(t *testing.T) {
	baseDir := t.TempDir()

	for i := range 3 {
		path := filepath.Join(baseDir, "gifsizer_old"+string(rune('0'+i)))
		if err := os.MkdirAll(path, 0755); err != nil {
			t.Fatal(err)
		}
	}
	otherPath := filepath.Join(baseDir, "other.tmp")
	if err := os.WriteFile(otherPath, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	count, err := CleanupStaleTempFiles(baseDir, "gifsizer", 0)
	if err != nil {
		t.Fatalf("CleanupStaleTempFiles failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 entries cleaned, got %d", count)
	}
	if _, err := os.Stat(otherPath); os.IsNotExist(err) {
		t.Error("File without prefix should not be removed")
	}

	fresh := filepath.Join(baseDir, "gifsizer_fresh")
	if err := os.MkdirAll(fresh, 0755); err != nil {
		t.Fatal(err)
	}
	count, _ = CleanupStaleTempFiles(baseDir, "gifsizer", time.Hour)
	if count != 0 {
		t.Errorf("Fresh entries should be kept, cleaned %d", count)
	}
}

func TestCleanupStaleTempFiles_NonExistentDir(t *testing.T) {
	count, err := CleanupStaleTempFiles("/nonexistent/path", "test", 0)
	if err != nil {
		t.Errorf("Should not error on non-existent dir: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 files cleaned, got %d", count)
	}
}
