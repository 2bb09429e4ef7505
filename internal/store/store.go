// Package store keeps uploaded files in a flat directory together with a
// content index that maps sha256 checksums to the names sharing them.
//
// Writers (ingestion, duplicate resolution, removal, reconciliation) are
// serialized by the Store; the index file is additionally flock'd for the
// duration of each rewrite. Readers take no lock.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store is a directory of named files plus its content index.
type Store struct {
	dir   string
	index *Index
	log   *zap.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for store events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open prepares dir as a store, creating it when needed. The index file is
// not created until the first write.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty store directory", ErrStoreUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s := &Store{
		dir:   dir,
		index: NewIndex(filepath.Join(dir, IndexFileName)),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Index returns the content index.
func (s *Store) Index() *Index { return s.index }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// List returns the stored filenames in ascending order, leaving out the
// index file and in-flight temporaries.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || name == IndexFileName || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Exists reports whether a stored file called name is present.
func (s *Store) Exists(name string) (bool, error) {
	fi, err := os.Stat(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return fi.Mode().IsRegular(), nil
}

// Open returns the contents of a stored file.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return os.Open(s.path(name))
}

// Remove deletes the named files and their index entries. Names that are
// not stored are skipped. The returned slice lists what was removed; failures
// on individual names are combined into the error.
func (s *Store) Remove(names []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		removed []string
		errs    error
	)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if err := ValidateName(name); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ok, err := s.Exists(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !ok {
			s.log.Debug("remove skipped, not stored", zap.String("name", name))
			continue
		}
		if err := os.Remove(s.path(name)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: remove %q: %w", ErrStoreUnavailable, name, err))
			continue
		}
		if err := s.index.Forget(name); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed = append(removed, name)
	}
	if len(removed) > 0 {
		s.log.Info("files removed", zap.Strings("names", removed))
	}
	return removed, errs
}

// errContentDrift is returned by writeFile when the bytes read do not hash
// to the expected checksum. Nothing is renamed into place.
var errContentDrift = errors.New("content does not match checksum")

// writeFile streams r into the stored file name through a temporary file in
// the same directory and renames it into place. It returns the checksum and
// size of what was written. A non-empty want must match the checksum of the
// bytes, otherwise the temporary file is discarded and name is untouched.
func (s *Store) writeFile(name string, r io.Reader, want string) (string, int64, error) {
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp: %w", ErrStoreUnavailable, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return "", n, &copyError{err: err}
	}
	if err := tmp.Sync(); err != nil {
		return "", n, fmt.Errorf("%w: sync temp: %w", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return "", n, fmt.Errorf("%w: close temp: %w", ErrStoreUnavailable, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if want != "" && sum != want {
		return sum, n, errContentDrift
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		return "", n, fmt.Errorf("%w: rename %q: %w", ErrStoreUnavailable, name, err)
	}
	return sum, n, nil
}

// copyError marks a failure while moving bytes, which may come from either
// side of the copy.
type copyError struct {
	err error
}

func (e *copyError) Error() string { return "copy: " + e.err.Error() }

func (e *copyError) Unwrap() error { return e.err }

// fileChecksum hashes the stored file name.
func (s *Store) fileChecksum(name string) (string, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	sum, _, err := Checksum(f)
	return sum, err
}
