package util

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ContainedPath normalizes a slash or backslash separated relative path.
// It reports false for absolute paths and paths that climb out of their
// base with "..".
func ContainedPath(p string) (string, bool) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if trimmed == "" || path.IsAbs(trimmed) || filepath.IsAbs(p) {
		return "", false
	}
	clean := path.Clean(trimmed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return filepath.FromSlash(clean), true
}

// WriteFileWithDirs creates parent directories (0755) and replaces the file
// through a temp file and rename, so readers never see a partial write.
func WriteFileWithDirs(target string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(target)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", target, err)
	}
	tmpName := tmp.Name()

	writeErr := error(nil)
	if _, err := tmp.Write(data); err != nil {
		writeErr = fmt.Errorf("write temp file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close temp file %q: %w", tmpName, err)
	}
	if writeErr == nil {
		if err := os.Chmod(tmpName, perm); err != nil {
			writeErr = err
		}
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %q: %w", target, err)
	}
	return nil
}

// WriteStringWithDirs writes string content with parent directories created.
func WriteStringWithDirs(target, content string, perm fs.FileMode) error {
	return WriteFileWithDirs(target, []byte(content), perm)
}
