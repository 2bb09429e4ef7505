package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// IndexFileName is the reserved bookkeeping file inside the store directory.
const IndexFileName = "fileSums.json"

// checksums maps a content checksum to the names currently holding it.
type checksums map[string][]string

// add appends name to checksum's list after removing it from every other list.
func (c checksums) add(checksum, name string) {
	c.forget(name)
	c[checksum] = append(c[checksum], name)
}

// drop removes name from checksum's list, pruning the key when it empties.
func (c checksums) drop(name, checksum string) {
	names, ok := c[checksum]
	if !ok {
		return
	}
	names = slices.DeleteFunc(names, func(n string) bool { return n == name })
	if len(names) == 0 {
		delete(c, checksum)
		return
	}
	c[checksum] = names
}

// forget removes name from whichever list holds it.
func (c checksums) forget(name string) {
	for sum := range c {
		c.drop(name, sum)
	}
}

func (c checksums) clone() map[string][]string {
	out := make(map[string][]string, len(c))
	for sum, names := range c {
		out[sum] = slices.Clone(names)
	}
	return out
}

func decodeChecksums(data []byte) (checksums, error) {
	sums := checksums{}
	if len(data) == 0 {
		// A zero-length file is what first-time initialization leaves behind.
		return sums, nil
	}
	if err := json.Unmarshal(data, &sums); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}
	if sums == nil {
		// A literal null reads as an empty index, like a zero-length file.
		return checksums{}, nil
	}
	for sum, names := range sums {
		if len(names) == 0 {
			delete(sums, sum)
		}
	}
	return sums, nil
}

// Index is the persisted checksum -> filenames mapping. Every operation
// opens the backing file, takes an exclusive lock, works on the whole
// document and closes it again; nothing is cached between calls.
type Index struct {
	path string
}

// NewIndex returns an index backed by the JSON file at path. The file is
// created on the first mutation.
func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Path returns the backing file location.
func (ix *Index) Path() string { return ix.path }

// Lookup returns the names sharing checksum, or nil when it is unknown.
func (ix *Index) Lookup(checksum string) ([]string, error) {
	var names []string
	err := ix.view(func(sums checksums) {
		names = slices.Clone(sums[checksum])
	})
	return names, err
}

// ChecksumOf returns the checksum name is currently associated with.
func (ix *Index) ChecksumOf(name string) (string, bool, error) {
	var (
		found string
		ok    bool
	)
	err := ix.view(func(sums checksums) {
		for sum, names := range sums {
			if slices.Contains(names, name) {
				found, ok = sum, true
				return
			}
		}
	})
	return found, ok, err
}

// Associate moves name under checksum, detaching it from any other entry.
func (ix *Index) Associate(checksum, name string) error {
	return ix.update(func(sums checksums) error {
		sums.add(checksum, name)
		return nil
	})
}

// Disassociate removes name from checksum's entry; the entry is deleted once
// no names remain.
func (ix *Index) Disassociate(name, checksum string) error {
	return ix.update(func(sums checksums) error {
		sums.drop(name, checksum)
		return nil
	})
}

// Forget removes name from whichever entry holds it.
func (ix *Index) Forget(name string) error {
	return ix.update(func(sums checksums) error {
		sums.forget(name)
		return nil
	})
}

// Snapshot returns a deep copy of the whole index.
func (ix *Index) Snapshot() (map[string][]string, error) {
	var out map[string][]string
	err := ix.view(func(sums checksums) {
		out = sums.clone()
	})
	return out, err
}

// Replace overwrites the index with m.
func (ix *Index) Replace(m map[string][]string) error {
	return ix.update(func(sums checksums) error {
		clear(sums)
		for sum, names := range m {
			if len(names) > 0 {
				sums[sum] = slices.Clone(names)
			}
		}
		return nil
	})
}

func (ix *Index) view(fn func(checksums)) error {
	f, err := os.Open(ix.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fn(checksums{})
			return nil
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer unlockFile(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: read index: %w", ErrStoreUnavailable, err)
	}
	sums, err := decodeChecksums(data)
	if err != nil {
		return err
	}
	fn(sums)
	return nil
}

func (ix *Index) update(fn func(checksums) error) error {
	f, err := os.OpenFile(ix.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer unlockFile(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: read index: %w", ErrStoreUnavailable, err)
	}
	sums, err := decodeChecksums(data)
	if err != nil {
		return err
	}
	if err := fn(sums); err != nil {
		return err
	}

	out, err := json.Marshal(sums)
	if err != nil {
		return fmt.Errorf("%w: encode index: %w", ErrStoreUnavailable, err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("%w: truncate index: %w", ErrStoreUnavailable, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind index: %w", ErrStoreUnavailable, err)
	}
	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("%w: write index: %w", ErrStoreUnavailable, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync index: %w", ErrStoreUnavailable, err)
	}
	return nil
}
