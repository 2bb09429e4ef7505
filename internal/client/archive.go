package client

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalFile is a file on the caller's disk, named in the store by its base
// name.
type LocalFile struct {
	Path     string
	Name     string
	Checksum string
	Size     int64
}

// inspect hashes each path. Base names must be unique.
func inspect(paths []string) ([]LocalFile, error) {
	seen := make(map[string]string, len(paths))
	files := make([]LocalFile, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateName, prev, p)
		}
		seen[name] = p

		sum, size, err := hashFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, LocalFile{Path: p, Name: name, Checksum: sum, Size: size})
	}
	return files, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// packArchive deflates files into an in-memory zip, one flat entry per file.
func packArchive(files []LocalFile) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, lf := range files {
		if err := addEntry(zw, lf); err != nil {
			_ = zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func addEntry(zw *zip.Writer, lf LocalFile) error {
	src, err := os.Open(lf.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: lf.Name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("pack %s: %w", lf.Path, err)
	}
	return nil
}
