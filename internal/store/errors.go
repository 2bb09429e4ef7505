package store

import "errors"

var (
	// ErrBadArchive indicates an upload that cannot be opened or contains
	// entries that cannot be stored.
	ErrBadArchive = errors.New("store: unreadable archive")

	// ErrIndexCorrupt indicates the persisted content index cannot be parsed.
	ErrIndexCorrupt = errors.New("store: content index corrupt")

	// ErrStoreUnavailable indicates the backing directory or index is missing
	// or cannot be written.
	ErrStoreUnavailable = errors.New("store: storage unavailable")

	// ErrInvalidName indicates a filename that is empty, reserved or contains
	// path components.
	ErrInvalidName = errors.New("store: invalid filename")

	// ErrInvalidChecksum indicates a checksum that is not 64 hex characters.
	ErrInvalidChecksum = errors.New("store: invalid checksum")
)
