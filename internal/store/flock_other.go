//go:build !unix

package store

import "os"

// Without flock only the in-process key mutex serializes writers.
func tryLockFile(f *os.File) (bool, error) {
	return true, nil
}

func unlockFile(f *os.File) error {
	return nil
}
