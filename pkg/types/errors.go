package types

import (
	"errors"
	"fmt"
)

var (
	EINVAL error = errors.New("invalid argument")
	EIO    error = errors.New("input/output error")
)

// per-request conditions, reported through the completion and never fatal to the engine
var (
	ErrMissingTarget         = errors.New("no filename specified")
	ErrDeleteFailed          = errors.New("failed to delete file")
	ErrDirectoryCreateFailed = errors.New("failed to create directory")
	ErrOpenFailed            = errors.New("failed to open file")
	ErrWriteFailed           = errors.New("failed to write to file")
)

var (
	ErrEngineClosed    = errors.New("engine is closing")
	ErrBatchAbandoned  = errors.New("request abandoned after dispatch fault")
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrUnknownNode     = errors.New("unknown node")
)

// OpError tags a per-request failure with the path it concerned.
// errors.Is matches both Kind and the underlying I/O error.
type OpError struct {
	Kind error
	Path string
	Err  error
}

func NewOpError(kind error, path string, err error) *OpError {
	return &OpError{Kind: kind, Path: path, Err: err}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		if e.Path == "" {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DispatchError is raised outside the per-request error channel, e.g. a template
// that cannot be rendered. It abandons the batch it occurred in.
type DispatchError struct {
	Cause error
}

func (e *DispatchError) Error() string {
	return "dispatch fault: " + e.Cause.Error()
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}
