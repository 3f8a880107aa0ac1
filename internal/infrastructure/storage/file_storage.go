package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/port"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// LocalReportStore implements port.ReportStore on the local filesystem.
// Files live in one folder per event below baseDir.
type LocalReportStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalReportStore creates a new LocalReportStore
func NewLocalReportStore(baseDir string, logger *zap.Logger) *LocalReportStore {
	return &LocalReportStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

var _ port.ReportStore = (*LocalReportStore)(nil)

// Save writes content to <baseDir>/<event>/<file>
func (s *LocalReportStore) Save(ctx context.Context, eventID, fileName string, content []byte) (string, error) {
	fullPath, err := s.resolve(eventID, fileName)
	if err != nil {
		return "", err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create report folder",
			zap.String("path", parentDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// Write then rename; readers never observe a partial file
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		s.logger.Error("Failed to write report",
			zap.String("path", tmp),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("Report saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Read returns a stored report
func (s *LocalReportStore) Read(ctx context.Context, eventID, fileName string) ([]byte, error) {
	fullPath, err := s.resolve(eventID, fileName)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Exists checks if a report exists
func (s *LocalReportStore) Exists(ctx context.Context, eventID, fileName string) bool {
	fullPath, err := s.resolve(eventID, fileName)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// Delete removes a report. Deleting a missing report succeeds.
func (s *LocalReportStore) Delete(ctx context.Context, eventID, fileName string) error {
	fullPath, err := s.resolve(eventID, fileName)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete report",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SanitizeName returns a filesystem-safe version of name
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeNameChars.ReplaceAllString(name, "")
}

// resolve maps an event folder and file name to a path inside baseDir
func (s *LocalReportStore) resolve(eventID, fileName string) (string, error) {
	folder := SanitizeName(eventID)
	file := SanitizeName(fileName)
	if folder == "" || file == "" {
		return "", fmt.Errorf("invalid report location %q/%q", eventID, fileName)
	}

	fullPath := filepath.Join(s.baseDir, folder, file)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return fullPath, nil
}
