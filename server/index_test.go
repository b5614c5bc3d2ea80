// ABOUTME: Tests for the SQLite artifact index: record, lookup, listing, and status updates.
// ABOUTME: Each test opens a fresh database in a temp directory.

package server

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestIndex(t *testing.T) *ArtifactIndex {
	t.Helper()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testArtifact(uploadID string, created time.Time) Artifact {
	return Artifact{
		ArtifactID:       NewArtifactID(),
		UploadID:         uploadID,
		Filename:         "file.bin",
		Size:             1234,
		MIMEType:         "application/octet-stream",
		Path:             "/data/uploads/" + uploadID + "_file.bin",
		ProcessingStatus: "skipped",
		CreatedAt:        created,
	}
}

func TestRecordAndGetArtifact(t *testing.T) {
	idx := newTestIndex(t)
	a := testArtifact("u-1", time.Now())

	if err := idx.Record(a); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := idx.Get(a.ArtifactID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UploadID != "u-1" || got.Size != 1234 || got.ProcessingStatus != "skipped" {
		t.Fatalf("got %+v", got)
	}
	if got.CreatedAt.Unix() != a.CreatedAt.Unix() {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, a.CreatedAt)
	}
}

func TestSetProcessingStatus(t *testing.T) {
	idx := newTestIndex(t)
	a := testArtifact("u-1", time.Now())
	a.ProcessingStatus = "pending"
	if err := idx.Record(a); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := idx.SetProcessingStatus(a.ArtifactID, "completed"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err := idx.Get(a.ArtifactID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProcessingStatus != "completed" {
		t.Fatalf("status = %q, want completed", got.ProcessingStatus)
	}

	if err := idx.SetProcessingStatus("missing", "failed"); err == nil {
		t.Fatal("updating unknown artifact must fail")
	}
}

func TestListNewestFirst(t *testing.T) {
	idx := newTestIndex(t)
	base := time.Now().Add(-time.Hour)

	older := testArtifact("u-old", base)
	newer := testArtifact("u-new", base.Add(30*time.Minute))
	if err := idx.Record(older); err != nil {
		t.Fatalf("record older: %v", err)
	}
	if err := idx.Record(newer); err != nil {
		t.Fatalf("record newer: %v", err)
	}

	list, err := idx.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list has %d entries, want 2", len(list))
	}
	if list[0].UploadID != "u-new" || list[1].UploadID != "u-old" {
		t.Fatalf("order = %s, %s", list[0].UploadID, list[1].UploadID)
	}
}

func TestDuplicateArtifactIDRejected(t *testing.T) {
	idx := newTestIndex(t)
	a := testArtifact("u-1", time.Now())
	if err := idx.Record(a); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := idx.Record(a); err == nil {
		t.Fatal("duplicate primary key must fail")
	}
}
