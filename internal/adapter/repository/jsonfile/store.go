// Package jsonfile persists the portfolio and the investment report as
// whole JSON documents, overwritten atomically on every save.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// readJSON reads and unmarshals a JSON file.
// os.IsNotExist(err) holds when the file is missing.
func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically.
// When versions > 0 the previous file is rotated to path.v1 … path.vN first;
// a failed rotation is logged and does not fail the write.
func writeJSON(path string, data interface{}, versions int, log zerolog.Logger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	// Write to a temp file in the same directory, then rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if versions > 0 {
		if err := rotateVersions(path, versions); err != nil {
			log.Warn().Err(err).Msg("Failed to rotate backups")
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// rotateVersions shifts existing backups up and copies the current file to v1.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1
// The current file stays in place so readers never observe it missing.
// Missing backups are expected; any other failure is returned.
func rotateVersions(target string, versions int) error {
	var errs []error

	if err := os.Remove(fmt.Sprintf("%s.v%d", target, versions)); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}

	for i := versions; i > 1; i-- {
		src := fmt.Sprintf("%s.v%d", target, i-1)
		dst := fmt.Sprintf("%s.v%d", target, i)
		if err := os.Rename(src, dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	data, err := os.ReadFile(target)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		errs = append(errs, fmt.Errorf("failed to read current file for backup: %w", err))
	default:
		if err := os.WriteFile(target+".v1", data, 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write backup: %w", err))
		}
	}

	return errors.Join(errs...)
}
