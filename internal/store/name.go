package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// tempPrefix marks in-flight writes; such files never appear in listings.
const tempPrefix = ".filestore-tmp-"

const maxNameLen = 255

// ValidateName reports whether name can be used as a stored filename. The
// store is a flat namespace: names carry no directory components.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case name == IndexFileName:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	case strings.HasPrefix(name, tempPrefix):
		return fmt.Errorf("%w: %q uses a reserved prefix", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLen)
	}
	return nil
}

// NormalizeChecksum lowercases a hex sha256 and validates its shape.
func NormalizeChecksum(sum string) (string, error) {
	sum = strings.ToLower(strings.TrimSpace(sum))
	if len(sum) != 2*sha256.Size {
		return "", fmt.Errorf("%w: unexpected length %d", ErrInvalidChecksum, len(sum))
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidChecksum, err)
	}
	return sum, nil
}

// Checksum returns the hex sha256 of everything read from r and the number
// of bytes consumed.
func Checksum(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
