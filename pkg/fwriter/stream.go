package fwriter

import (
	"os"

	"github.com/lambertxiao/go-dynfile/pkg/types"
)

// StreamHandle is an append stream bound to one resolved path, plus the identity of
// the file it was opened against.
type StreamHandle struct {
	path        string
	file        *os.File
	identity    Identity
	hasIdentity bool
}

func openStream(path string) (*StreamHandle, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, types.DEFAULT_FILE_MODE)
	if err != nil {
		return nil, err
	}

	s := &StreamHandle{path: path, file: f}
	// best effort, without an identity the handle is reused unchecked
	if id, err := fileIdentity(f); err == nil {
		s.identity = id
		s.hasIdentity = true
	}
	return s, nil
}

func (s *StreamHandle) Path() string {
	return s.path
}

func (s *StreamHandle) IsOpen() bool {
	return s != nil && s.file != nil
}

// Current reports whether the path still names the file the stream was opened on.
func (s *StreamHandle) Current() bool {
	if !s.IsOpen() {
		return false
	}
	if !s.hasIdentity {
		return true
	}
	id, err := pathIdentity(s.path)
	if err != nil {
		return false
	}
	return id == s.identity
}

func (s *StreamHandle) Write(buf []byte) (int, error) {
	if !s.IsOpen() {
		return 0, os.ErrClosed
	}
	return s.file.Write(buf)
}

func (s *StreamHandle) Close() error {
	if !s.IsOpen() {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
