package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"peoplecounter/internal/config"
	"peoplecounter/internal/logger"
)

// AllowedExtensions lists the upload extensions accepted before decoding.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

// ErrInvalidName is returned when a client name secures to nothing usable.
var ErrInvalidName = errors.New("invalid filename")

const maxNameAttempts = 1000

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// UploadStore writes uploaded originals and annotated copies to a directory.
type UploadStore struct {
	dir    string
	now    func() time.Time
	logger *logger.Logger
}

// NewUploadStore creates the upload directory if needed.
func NewUploadStore(config *config.Config, logger *logger.Logger) (*UploadStore, error) {
	if err := os.MkdirAll(config.UploadDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{
		dir:    config.UploadDirectory,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Dir returns the directory files are stored in.
func (s *UploadStore) Dir() string {
	return s.dir
}

// AllowedFile reports whether filename has an accepted image extension.
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return ext != "" && AllowedExtensions[strings.ToLower(ext)]
}

// SecureFilename reduces a client-supplied name to a safe base name made of
// ASCII letters, digits, '_', '-' and '.'.
func SecureFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeChars.ReplaceAllString(filename, "")
	return strings.Trim(filename, "._")
}

// Reserve claims a fresh name for an upload, derived from its secured client
// name, by creating an empty file under it. Concurrent callers never get the
// same name. The caller fills the file with Save or drops it with Remove.
func (s *UploadStore) Reserve(clientName string) (string, error) {
	safe := SecureFilename(clientName)
	if safe == "" || !AllowedFile(safe) {
		return "", fmt.Errorf("%w %q", ErrInvalidName, clientName)
	}
	prefix := s.now().Format("20060102-150405.000")

	name := prefix + "_" + safe
	for i := 1; i <= maxNameAttempts; i++ {
		file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			file.Close()
			return name, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to reserve %s: %w", name, err)
		}
		name = fmt.Sprintf("%s-%d_%s", prefix, i, safe)
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", clientName, maxNameAttempts)
}

// Save writes data under name and returns the full path.
func (s *UploadStore) Save(name string, data []byte) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid stored name %q", name)
	}

	fullpath := filepath.Join(s.dir, name)
	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}

	s.logger.Info("Saved %s (%d bytes)", name, len(data))
	return fullpath, nil
}

// Remove deletes a stored file, ignoring files that are already gone.
func (s *UploadStore) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
