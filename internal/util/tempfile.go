// Package util provides filesystem helpers shared by the encoder driver
// and host worker variants: scratch directories/files with automatic
// cleanup, and the naming convention for per-run encoder transaction logs.
package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempDir represents a temporary directory with automatic cleanup.
type TempDir struct {
	path string
}

// Path returns the path to the temporary directory.
func (t *TempDir) Path() string {
	return t.path
}

// Cleanup removes the temporary directory and all its contents.
func (t *TempDir) Cleanup() error {
	if t.path == "" {
		return nil
	}
	return os.RemoveAll(t.path)
}

// TempFile represents a temporary file with automatic cleanup.
type TempFile struct {
	*os.File
	path string
}

// Cleanup closes and removes the temporary file.
func (t *TempFile) Cleanup() error {
	var closeErr error
	if t.File != nil {
		closeErr = t.Close()
	}
	if t.path == "" {
		return closeErr
	}
	if err := os.Remove(t.path); err != nil {
		return err
	}
	return closeErr
}

// EnsureDirectoryWritable checks if a directory exists and is writable.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testPath := filepath.Join(path, ".wandarr_write_test")
	f, err := os.Create(testPath)
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", path)
	}
	_ = f.Close()
	_ = os.Remove(testPath)

	return nil
}

// CreateTempDir creates a temporary directory with the given prefix.
// The caller is responsible for calling Cleanup() when done.
func CreateTempDir(baseDir, prefix string) (*TempDir, error) {
	if err := EnsureDirectoryWritable(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	randomSuffix, err := generateRandomString(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random string: %w", err)
	}

	dirName := fmt.Sprintf("%s_%s", prefix, randomSuffix)
	dirPath := filepath.Join(baseDir, dirName)

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory in %s: %w", baseDir, err)
	}

	return &TempDir{path: dirPath}, nil
}

// CreateTempFile creates a temporary file with the given prefix and extension.
// The caller is responsible for calling Cleanup() when done.
func CreateTempFile(dir, prefix, extension string) (*TempFile, error) {
	if err := EnsureDirectoryWritable(dir); err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	randomSuffix, err := generateRandomString(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random string: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.%s", prefix, randomSuffix, extension)
	filePath := filepath.Join(dir, filename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}

	return &TempFile{File: f, path: filePath}, nil
}

// CreateTempFilePath returns a temporary file path with random suffix.
// Does not create the file. Validates the directory exists and is writable first.
func CreateTempFilePath(dir, prefix, extension string) (string, error) {
	if err := EnsureDirectoryWritable(dir); err != nil {
		return "", fmt.Errorf("failed to create temp file path: %w", err)
	}

	randomSuffix, err := generateRandomString(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate random string: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.%s", prefix, randomSuffix, extension)
	tempPath := filepath.Join(dir, filename)

	if _, err := os.Stat(tempPath); err == nil {
		return CreateTempFilePath(dir, prefix, extension)
	}

	return tempPath, nil
}

// EncoderLogPath returns the path of the per-run encoder transaction log
// for the given worker id, following the "wandarr-<worker>-<3 digits>.log"
// naming convention: a fixed name per worker plus a random 3-digit suffix
// so a worker's successive runs don't collide while ffmpeg is still
// flushing the previous one to disk.
func EncoderLogPath(dir, workerID string) (string, error) {
	suffix, err := generateRandomDigits(3)
	if err != nil {
		return "", fmt.Errorf("failed to generate log suffix: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("wandarr-%s-%s.log", workerID, suffix)), nil
}

// CleanupStaleTempFiles removes temporary files matching the prefix older than maxAgeHours.
// Returns the number of files cleaned up.
func CleanupStaleTempFiles(dir, prefix string, maxAgeHours uint64) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	cleanedCount := 0
	maxAge := time.Duration(maxAgeHours) * time.Hour
	now := time.Now()

	prefixMatch := fmt.Sprintf("%s_", prefix)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path != dir {
				return fs.SkipDir
			}
			return nil
		}

		filename := d.Name()
		if !strings.HasPrefix(filename, prefixMatch) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age > maxAge {
			if err := os.Remove(path); err == nil {
				cleanedCount++
			}
		}

		return nil
	})

	if err != nil {
		return cleanedCount, fmt.Errorf("failed to read temp directory for cleanup: %w", err)
	}

	return cleanedCount, nil
}

// generateRandomString generates a random hex string of the given length.
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// generateRandomDigits generates a random decimal digit string of the given length.
func generateRandomDigits(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	digits := make([]byte, length)
	for i, b := range bytes {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
