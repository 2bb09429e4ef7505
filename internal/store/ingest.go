package store

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// SavedFile describes one archive entry written to the store.
type SavedFile struct {
	Name     string `json:"name"`
	Checksum string `json:"sha256"`
	Size     int64  `json:"size"`
}

// IngestResult reports what Ingest did. When Conflict is set the archive was
// processed only up to the colliding entry.
type IngestResult struct {
	Saved    []SavedFile
	Conflict string
}

// Conflicted reports whether an add stopped on an existing name.
func (r IngestResult) Conflicted() bool { return r.Conflict != "" }

// Ingest extracts every file entry of the zip archive into the store and
// indexes it. With update false an entry whose name is already stored stops
// the run and is reported in IngestResult.Conflict.
//
// Entries are committed one by one. Whatever was extracted before a
// conflict or a failure stays on disk and in the index; there is no
// rollback.
func (s *Store) Ingest(archive io.ReaderAt, size int64, update bool) (IngestResult, error) {
	var res IngestResult

	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrBadArchive, err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if err := ValidateName(f.Name); err != nil {
			return res, fmt.Errorf("%w: %w", ErrBadArchive, err)
		}
		files = append(files, f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range files {
		if !update {
			exists, err := s.Exists(f.Name)
			if err != nil {
				return res, err
			}
			if exists {
				res.Conflict = f.Name
				s.log.Info("ingest stopped on existing name",
					zap.String("name", f.Name), zap.Int("saved", len(res.Saved)))
				return res, nil
			}
		}

		saved, err := s.extract(f)
		if err != nil {
			return res, err
		}
		if err := s.index.Associate(saved.Checksum, saved.Name); err != nil {
			if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrIndexCorrupt) {
				return res, err
			}
			return res, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		res.Saved = append(res.Saved, saved)
		s.log.Debug("entry stored",
			zap.String("name", saved.Name), zap.String("checksum", saved.Checksum), zap.Int64("size", saved.Size))
	}

	s.log.Info("archive ingested", zap.Int("files", len(res.Saved)), zap.Bool("update", update))
	return res, nil
}

func (s *Store) extract(f *zip.File) (SavedFile, error) {
	rc, err := f.Open()
	if err != nil {
		return SavedFile{}, fmt.Errorf("%w: open entry %q: %w", ErrBadArchive, f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	sum, n, err := s.writeFile(f.Name, rc, "")
	var ce *copyError
	if errors.As(err, &ce) {
		if isArchiveError(ce.err) {
			return SavedFile{}, fmt.Errorf("%w: entry %q: %w", ErrBadArchive, f.Name, ce.err)
		}
		return SavedFile{}, fmt.Errorf("%w: entry %q: %w", ErrStoreUnavailable, f.Name, ce.err)
	}
	if err != nil {
		return SavedFile{}, err
	}
	return SavedFile{Name: f.Name, Checksum: sum, Size: n}, nil
}

func isArchiveError(err error) bool {
	return errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
