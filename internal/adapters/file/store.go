package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// ErrInvalidSubject is returned for subject IDs that cannot be used as file names.
var ErrInvalidSubject = errors.New("invalid subject id")

// Store implements ports.ThreadStore using the local filesystem.
// It stores threads as JSON files in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".tendril/threads".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".tendril", "threads")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(subjectID string) (string, error) {
	if subjectID == "" || subjectID == "." || subjectID == ".." ||
		strings.ContainsAny(subjectID, `/\`) || strings.HasPrefix(subjectID, "tmp-") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubject, subjectID)
	}
	return filepath.Join(s.BasePath, subjectID+".json"), nil
}

// Save persists the thread to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	destPath, err := s.path(subjectID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure thread directory: %w", err)
	}

	data, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	// Same directory as the destination, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+subjectID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing thread file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to thread file: %w", err)
	}
	return nil
}

// Load retrieves the thread from its JSON file.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	filePath, err := s.path(subjectID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to read thread file: %w", err)
	}

	var thread domain.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread: %w", err)
	}
	return &thread, nil
}

// Delete removes the thread file.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	filePath, err := s.path(subjectID)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete thread file: %w", err)
	}
	return nil
}

// List returns all stored subject IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	var subjects []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		subjects = append(subjects, strings.TrimSuffix(name, ".json"))
	}
	return subjects, nil
}
