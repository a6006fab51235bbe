package storage

import (
	"fmt"
	"log/slog"
	"os"
)

const tempSuffix = ".tmp"

// writeTemp writes data next to path. Nothing is left behind on failure.
// Renaming the result with commitTemp replaces path in one step.
func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	tmp := path + tempSuffix
	if err := os.WriteFile(tmp, data, perm); err != nil {
		discardTemp(tmp)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	return tmp, nil
}

func commitTemp(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		discardTemp(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func discardTemp(tmp string) {
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove temp file", "path", tmp, "error", err)
	}
}
