package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/spf13/afero"

	"github.com/syncsoftco/tickr/internal/domain"
)

// Local is a ContentStore over a filesystem. The version token is the
// SHA-256 of the file content, so a concurrent rewrite between Read and
// Update is detected the same way a remote store detects a stale blob.
//
// The mutex serializes mutations from fetch jobs sharing one data dir inside
// the same process; it offers no protection against other writers of the
// same directory, which the version check covers.
type Local struct {
	fs afero.Fs
	mu sync.Mutex
}

var _ ContentStore = (*Local)(nil)

func NewLocal(fs afero.Fs) *Local {
	return &Local{fs: fs}
}

func (s *Local) Read(_ context.Context, p string) ([]byte, string, error) {
	content, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrNotFound, p)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return content, contentVersion(content), nil
}

func (s *Local) List(_ context.Context, dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{Name: info.Name(), IsDir: info.IsDir()})
	}
	return entries, nil
}

func (s *Local) Create(_ context.Context, p, _ string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, p)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if exists {
		return fmt.Errorf("%w: %s already exists", domain.ErrConflict, p)
	}
	return s.write(p, content)
}

func (s *Local) Update(_ context.Context, p, _ string, content []byte, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, p)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", p, err)
	}
	if contentVersion(current) != version {
		return fmt.Errorf("%w: %s", domain.ErrConflict, p)
	}
	return s.write(p, content)
}

func (s *Local) write(p string, content []byte) error {
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := afero.WriteFile(s.fs, p, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

func contentVersion(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
