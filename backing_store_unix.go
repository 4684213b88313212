//go:build !windows

// backing_store_unix.go - advisory file locking for the swap file

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockBackingFile takes a non-blocking exclusive advisory lock on f so a
// second simulator process cannot open the same swap file concurrently.
func lockBackingFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}
