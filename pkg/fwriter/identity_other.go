//go:build !unix

package fwriter

import (
	"errors"
	"os"
)

type Identity struct {
	Dev uint64
	Ino uint64
}

var errNoIdentity = errors.New("file identity not supported on this platform")

func fileIdentity(f *os.File) (Identity, error) {
	return Identity{}, errNoIdentity
}

func pathIdentity(path string) (Identity, error) {
	return Identity{}, errNoIdentity
}

func unlink(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return &os.PathError{Op: "unlink", Path: path, Err: errors.New("is a directory")}
	}
	return os.Remove(path)
}
