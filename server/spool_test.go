// ABOUTME: Tests for the on-disk chunk spool: idempotent writes, ordered assembly, and cleanup.
// ABOUTME: Uses temp directories; every path goes through the public Spool API.

package server

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestSpool(t *testing.T) *Spool {
	t.Helper()
	sp, err := NewSpool(filepath.Join(t.TempDir(), "chunks"))
	if err != nil {
		t.Fatalf("creating spool: %v", err)
	}
	return sp
}

func TestWriteChunkIsIdempotent(t *testing.T) {
	sp := newTestSpool(t)

	n, err := sp.WriteChunk("u-1", 0, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if n != 5 {
		t.Fatalf("wrote %d bytes, want 5", n)
	}

	// A duplicate delivery leaves the stored bytes untouched.
	n, err = sp.WriteChunk("u-1", 0, strings.NewReader("different bytes"))
	if err != nil {
		t.Fatalf("duplicate write: %v", err)
	}
	if n != 5 {
		t.Fatalf("duplicate reported %d bytes, want stored size 5", n)
	}
	if !sp.HasChunk("u-1", 0) {
		t.Fatal("chunk missing after duplicate write")
	}
}

func TestAssembleConcatenatesInIndexOrder(t *testing.T) {
	sp := newTestSpool(t)

	// Written out of order; assembly is by index.
	sp.WriteChunk("u-1", 2, strings.NewReader("!"))
	sp.WriteChunk("u-1", 0, strings.NewReader("hello "))
	sp.WriteChunk("u-1", 1, strings.NewReader("world"))

	dst := filepath.Join(t.TempDir(), "out.bin")
	size, err := sp.Assemble("u-1", 3, dst)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if size != 12 {
		t.Fatalf("assembled size = %d, want 12", size)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if !bytes.Equal(data, []byte("hello world!")) {
		t.Fatalf("artifact = %q", data)
	}
}

func TestAssembleFailsOnMissingChunk(t *testing.T) {
	sp := newTestSpool(t)
	sp.WriteChunk("u-1", 0, strings.NewReader("a"))
	sp.WriteChunk("u-1", 2, strings.NewReader("c"))

	dst := filepath.Join(t.TempDir(), "out.bin")
	if _, err := sp.Assemble("u-1", 3, dst); err == nil {
		t.Fatal("assemble with a gap must fail")
	}
	// No partial artifact left behind.
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("partial artifact not removed")
	}
}

func TestAssembleZeroChunksProducesEmptyArtifact(t *testing.T) {
	sp := newTestSpool(t)

	dst := filepath.Join(t.TempDir(), "empty.bin")
	size, err := sp.Assemble("u-1", 0, dst)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if size != 0 {
		t.Fatalf("size = %d, want 0", size)
	}
	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	if fi.Size() != 0 {
		t.Fatalf("artifact size = %d, want 0", fi.Size())
	}
}

func TestRemoveDeletesSessionChunks(t *testing.T) {
	sp := newTestSpool(t)
	sp.WriteChunk("u-1", 0, strings.NewReader("a"))

	if err := sp.Remove("u-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if sp.HasChunk("u-1", 0) {
		t.Fatal("chunk survived remove")
	}

	// Removing a session that never spooled anything is fine.
	if err := sp.Remove("never-seen"); err != nil {
		t.Fatalf("remove of unknown session: %v", err)
	}
}
