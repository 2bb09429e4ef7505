package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailed indicates the server could not be reached.
	ErrConnectionFailed = errors.New("client: connection failed")

	// ErrInvalidResponse indicates the server answered with a body the
	// client could not decode.
	ErrInvalidResponse = errors.New("client: invalid response")

	// ErrNoFiles is returned by the analytics calls when the store is empty.
	ErrNoFiles = errors.New("client: no files currently stored")

	// ErrDuplicateName indicates two local paths share a base name and would
	// collide inside one archive.
	ErrDuplicateName = errors.New("client: duplicate file name")
)

// StatusError is an unexpected HTTP status. Message is the server's body,
// which for this API is a human readable line such as
// "ERROR: a.txt already exists".
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: server returned %d", e.Code)
	}
	return fmt.Sprintf("client: server returned %d: %s", e.Code, e.Message)
}
