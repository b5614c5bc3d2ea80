// ABOUTME: Tests for session state transitions and received-chunk set semantics.
// ABOUTME: Covers idempotent marking, completion gating, and terminal-state rejection.

package server

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(totalChunks int) *Session {
	now := time.Now()
	return &Session{
		UploadID:    "test-session",
		Filename:    "file.bin",
		TotalChunks: totalChunks,
		received:    make(map[int]bool),
		status:      StatusInitialized,
		CreatedAt:   now,
		LastAccess:  now,
	}
}

func TestMarkReceivedGrowsSetOnce(t *testing.T) {
	sess := newTestSession(3)

	added, err := sess.MarkReceived(1)
	if err != nil || !added {
		t.Fatalf("first mark: added=%v err=%v", added, err)
	}
	if sess.Status() != StatusActive {
		t.Fatalf("status = %s, want active", sess.Status())
	}

	added, err = sess.MarkReceived(1)
	if err != nil {
		t.Fatalf("duplicate mark errored: %v", err)
	}
	if added {
		t.Fatal("duplicate mark grew the set")
	}
	if sess.ReceivedCount() != 1 {
		t.Fatalf("received count = %d, want 1", sess.ReceivedCount())
	}
}

func TestMarkReceivedRejectsOutOfRange(t *testing.T) {
	sess := newTestSession(3)
	if _, err := sess.MarkReceived(3); err == nil {
		t.Fatal("index == totalChunks must be rejected")
	}
	if _, err := sess.MarkReceived(-1); err == nil {
		t.Fatal("negative index must be rejected")
	}
}

func TestBeginCompleteRequiresFullSet(t *testing.T) {
	sess := newTestSession(2)
	sess.MarkReceived(0)

	err := sess.BeginComplete()
	var incomplete *incompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected incompleteError, got %v", err)
	}
	// Rejection leaves the session usable.
	if sess.Status() != StatusActive {
		t.Fatalf("status after rejection = %s, want active", sess.Status())
	}

	sess.MarkReceived(1)
	if err := sess.BeginComplete(); err != nil {
		t.Fatalf("complete with full set: %v", err)
	}
	if sess.Status() != StatusCompleting {
		t.Fatalf("status = %s, want completing", sess.Status())
	}
}

func TestFailCompleteReturnsToActive(t *testing.T) {
	sess := newTestSession(1)
	sess.MarkReceived(0)
	if err := sess.BeginComplete(); err != nil {
		t.Fatalf("begin complete: %v", err)
	}

	sess.FailComplete()
	if sess.Status() != StatusActive {
		t.Fatalf("status = %s, want active", sess.Status())
	}

	// A second attempt can succeed.
	if err := sess.BeginComplete(); err != nil {
		t.Fatalf("retry complete: %v", err)
	}
	sess.FinishComplete()
	if sess.Status() != StatusCompleted {
		t.Fatalf("status = %s, want completed", sess.Status())
	}
}

func TestTerminalSessionRejectsChunks(t *testing.T) {
	sess := newTestSession(2)
	sess.MarkReceived(0)
	sess.MarkAborted()

	if _, err := sess.MarkReceived(1); err == nil {
		t.Fatal("aborted session accepted a chunk")
	}
	if err := sess.BeginComplete(); err == nil {
		t.Fatal("aborted session accepted complete")
	}
}

func TestMarkAbortedIsIdempotentAndSparesCompleted(t *testing.T) {
	sess := newTestSession(1)
	sess.MarkAborted()
	sess.MarkAborted()
	if sess.Status() != StatusAborted {
		t.Fatalf("status = %s, want aborted", sess.Status())
	}

	done := newTestSession(1)
	done.MarkReceived(0)
	done.BeginComplete()
	done.FinishComplete()
	done.MarkAborted()
	if done.Status() != StatusCompleted {
		t.Fatalf("abort overwrote completed status: %s", done.Status())
	}
}

func TestZeroChunkSessionCompletesImmediately(t *testing.T) {
	sess := newTestSession(0)
	if err := sess.BeginComplete(); err != nil {
		t.Fatalf("zero-chunk complete: %v", err)
	}
}
