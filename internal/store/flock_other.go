//go:build !unix

package store

import "os"

// No cross-process locking off unix; Store.mu still serializes writers
// inside one process.

func lockFile(f *os.File) error { return nil }

func tryLockFile(f *os.File) error { return nil }

func unlockFile(f *os.File) {}
