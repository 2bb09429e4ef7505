package store

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
)

// Resolution is the outcome of ResolveDuplicate.
type Resolution struct {
	// Duplicate is true when name now holds a server-side copy and the
	// caller need not send any bytes.
	Duplicate bool
	// Source is the stored file the copy was taken from.
	Source   string
	Name     string
	Checksum string
	Size     int64
}

// ResolveOptions tunes ResolveDuplicate.
type ResolveOptions struct {
	// NoOverwrite leaves an existing file called name untouched and reports
	// no duplicate, so an add can still collide.
	NoOverwrite bool
}

// ResolveDuplicate checks whether content with checksum is already stored
// under another name and, if so, copies it to name and indexes the copy.
// Despite reading like a query it writes to the store whenever a duplicate
// is found.
func (s *Store) ResolveDuplicate(checksum, name string, opts ResolveOptions) (Resolution, error) {
	sum, err := NormalizeChecksum(checksum)
	if err != nil {
		return Resolution{}, err
	}
	if err := ValidateName(name); err != nil {
		return Resolution{}, err
	}
	res := Resolution{Name: name, Checksum: sum}

	s.mu.Lock()
	defer s.mu.Unlock()

	holders, err := s.index.Lookup(sum)
	if err != nil {
		return res, err
	}
	if len(holders) == 0 || slices.Contains(holders, name) {
		return res, nil
	}
	if opts.NoOverwrite {
		exists, err := s.Exists(name)
		if err != nil {
			return res, err
		}
		if exists {
			return res, nil
		}
	}

	for _, source := range holders {
		written, size, err := s.copyStored(source, name, sum)
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.log.Warn("indexed file missing on disk",
				zap.String("name", source), zap.String("checksum", sum))
			continue
		case errors.Is(err, errContentDrift):
			s.log.Warn("indexed file changed on disk",
				zap.String("name", source), zap.String("want", sum), zap.String("got", written))
			continue
		case err != nil:
			return res, err
		}
		if err := s.index.Associate(sum, name); err != nil {
			return res, err
		}
		res.Duplicate = true
		res.Source = source
		res.Size = size
		s.log.Info("duplicate copied",
			zap.String("source", source), zap.String("name", name), zap.String("checksum", sum))
		return res, nil
	}
	return res, nil
}

// copyStored copies source to name only if its bytes still hash to want.
func (s *Store) copyStored(source, name, want string) (string, int64, error) {
	src, err := os.Open(s.path(source))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("%w: open %q: %w", ErrStoreUnavailable, source, err)
	}
	defer func() { _ = src.Close() }()

	sum, n, err := s.writeFile(name, src, want)
	var ce *copyError
	if errors.As(err, &ce) {
		return "", n, fmt.Errorf("%w: copy %q: %w", ErrStoreUnavailable, source, ce.err)
	}
	return sum, n, err
}
