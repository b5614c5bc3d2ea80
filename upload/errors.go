// ABOUTME: Error hierarchy for the chunked upload protocol client.
// ABOUTME: Defines structured error types for init, chunk, complete, and abort failures.

package upload

import "fmt"

// UploadError is the base error type for all errors in the upload client.
// All other error types embed UploadError either directly or transitively.
type UploadError struct {
	Message string
	Cause   error
}

func (e *UploadError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// SessionInitError indicates the upload session could not be created. It is
// fatal to the whole upload; no chunks are sent without a valid session ID.
type SessionInitError struct {
	UploadError
	StatusCode int
}

func (e *SessionInitError) Error() string { return e.UploadError.Error() }
func (e *SessionInitError) Unwrap() error { return e.UploadError.Unwrap() }

// As enables errors.As to match UploadError from a SessionInitError.
func (e *SessionInitError) As(target any) bool {
	if t, ok := target.(**UploadError); ok {
		*t = &e.UploadError
		return true
	}
	return false
}

// ChunkUploadError indicates a single chunk transmission failed. Index is the
// zero-based chunk index that failed; chunks after it are never sent.
type ChunkUploadError struct {
	UploadError
	Index      int
	StatusCode int
}

func (e *ChunkUploadError) Error() string { return e.UploadError.Error() }
func (e *ChunkUploadError) Unwrap() error { return e.UploadError.Unwrap() }

func (e *ChunkUploadError) As(target any) bool {
	if t, ok := target.(**UploadError); ok {
		*t = &e.UploadError
		return true
	}
	return false
}

// IncompleteUploadError indicates complete was requested while the server was
// still missing chunk indices. With the sequential send loop this signals a
// coordinator bug or a skipped chunk.
type IncompleteUploadError struct {
	UploadError
}

func (e *IncompleteUploadError) Error() string { return e.UploadError.Error() }
func (e *IncompleteUploadError) Unwrap() error { return e.UploadError.Unwrap() }

func (e *IncompleteUploadError) As(target any) bool {
	if t, ok := target.(**UploadError); ok {
		*t = &e.UploadError
		return true
	}
	return false
}

// ReassemblyError indicates the server failed to join the received chunks
// into the final artifact, or rejected the complete request outright.
type ReassemblyError struct {
	UploadError
	StatusCode int
}

func (e *ReassemblyError) Error() string { return e.UploadError.Error() }
func (e *ReassemblyError) Unwrap() error { return e.UploadError.Unwrap() }

func (e *ReassemblyError) As(target any) bool {
	if t, ok := target.(**UploadError); ok {
		*t = &e.UploadError
		return true
	}
	return false
}

// AbortError indicates an abort request failed. Abort is best-effort cleanup:
// callers log this error rather than escalating it.
type AbortError struct {
	UploadError
	StatusCode int
}

func (e *AbortError) Error() string { return e.UploadError.Error() }
func (e *AbortError) Unwrap() error { return e.UploadError.Unwrap() }

func (e *AbortError) As(target any) bool {
	if t, ok := target.(**UploadError); ok {
		*t = &e.UploadError
		return true
	}
	return false
}

func newSessionInitError(status int, cause error) *SessionInitError {
	return &SessionInitError{
		UploadError: UploadError{Message: "initializing upload session", Cause: cause},
		StatusCode:  status,
	}
}

func newChunkUploadError(index, status int, cause error) *ChunkUploadError {
	return &ChunkUploadError{
		UploadError: UploadError{Message: fmt.Sprintf("uploading chunk %d", index), Cause: cause},
		Index:       index,
		StatusCode:  status,
	}
}
