// ABOUTME: Upload session state: received-chunk set, lifecycle status, and guarded transitions.
// ABOUTME: All mutation goes through methods holding the session mutex so concurrent chunk posts stay atomic.

package server

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of an upload session.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusActive      Status = "active"
	StatusCompleting  Status = "completing"
	StatusCompleted   Status = "completed"
	StatusAborted     Status = "aborted"
)

// Session is the server-side accumulator for one logical upload. It tracks
// which chunk indices have been received; the chunk bytes themselves live in
// the spool directory until complete or abort.
type Session struct {
	mu sync.Mutex

	UploadID     string
	Filename     string
	DeclaredSize int64
	MIMEType     string
	TotalChunks  int
	Metadata     map[string]any

	received map[int]bool
	status   Status

	CreatedAt  time.Time
	LastAccess time.Time
}

// MarkReceived records one chunk index as stored. Duplicate delivery of an
// index is a no-op, not an error: added reports whether the set grew. Indices
// outside [0, TotalChunks) are rejected.
func (sess *Session) MarkReceived(index int) (added bool, err error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if index < 0 || index >= sess.TotalChunks {
		return false, fmt.Errorf("chunk index %d out of range [0, %d)", index, sess.TotalChunks)
	}
	switch sess.status {
	case StatusInitialized, StatusActive:
	default:
		return false, fmt.Errorf("session is %s, not accepting chunks", sess.status)
	}

	if sess.received[index] {
		return false, nil
	}
	sess.received[index] = true
	sess.status = StatusActive
	return true, nil
}

// ReceivedCount returns the number of distinct chunk indices stored so far.
func (sess *Session) ReceivedCount() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.received)
}

// Status returns the current lifecycle state.
func (sess *Session) Status() Status {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status
}

// BeginComplete transitions the session to completing. It fails when any
// index in [0, TotalChunks) is missing or when the session has already left
// the active states; on failure the session is left unchanged.
func (sess *Session) BeginComplete() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.status {
	case StatusInitialized, StatusActive:
	default:
		return fmt.Errorf("session is %s, cannot complete", sess.status)
	}
	if len(sess.received) != sess.TotalChunks {
		return &incompleteError{expected: sess.TotalChunks, got: len(sess.received)}
	}
	sess.status = StatusCompleting
	return nil
}

// FinishComplete marks the session completed after a successful reassembly.
func (sess *Session) FinishComplete() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.status = StatusCompleted
}

// FailComplete returns a completing session to active so the caller can retry
// or abort. Transport and write failures are not auto-terminal.
func (sess *Session) FailComplete() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status == StatusCompleting {
		sess.status = StatusActive
	}
}

// MarkAborted transitions the session to aborted. Aborting an already
// terminal session is a no-op.
func (sess *Session) MarkAborted() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status != StatusCompleted {
		sess.status = StatusAborted
	}
}

// incompleteError distinguishes missing-chunk rejection from other complete
// failures so the handler can map it to a 400.
type incompleteError struct {
	expected int
	got      int
}

func (e *incompleteError) Error() string {
	return fmt.Sprintf("upload incomplete: expected %d chunks, got %d", e.expected, e.got)
}
