// ABOUTME: Tests for the protocol client: error mapping, header forwarding, and body shapes.
// ABOUTME: Uses httptest handlers that assert on the raw requests the client produces.

package upload

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteMapsBadRequestToIncompleteUploadError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"upload incomplete"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Complete(context.Background(), "u-1")

	var incomplete *IncompleteUploadError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteUploadError, got %T: %v", err, err)
	}
}

func TestCompleteMapsServerFailureToReassemblyError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"disk full"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Complete(context.Background(), "u-1")

	var reassembly *ReassemblyError
	if !errors.As(err, &reassembly) {
		t.Fatalf("expected ReassemblyError, got %T: %v", err, err)
	}
	if reassembly.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", reassembly.StatusCode)
	}
}

func TestAbortFailureReturnsAbortError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Upload session not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	err := NewClient(ts.URL).Abort(context.Background(), "gone")

	var abortErr *AbortError
	if !errors.As(err, &abortErr) {
		t.Fatalf("expected AbortError, got %T: %v", err, err)
	}
}

func TestDefaultHeadersForwardedOnEveryOperation(t *testing.T) {
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/init":
			json.NewEncoder(w).Encode(InitResponse{UploadID: "u-1"})
		case "/chunk":
			json.NewEncoder(w).Encode(ChunkResponse{Received: true})
		default:
			json.NewEncoder(w).Encode(map[string]string{"uploadId": "u-1"})
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, WithHeader("Authorization", "Bearer tok-123"))
	ctx := context.Background()

	if _, err := client.Init(ctx, InitRequest{Filename: "f", TotalChunks: 1, FileSize: 1}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := client.SendChunk(ctx, "u-1", 0, []byte("x")); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if _, err := client.Complete(ctx, "u-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := client.Abort(ctx, "u-1"); err != nil {
		t.Fatalf("abort: %v", err)
	}

	if len(seen) != 4 {
		t.Fatalf("saw %d requests, want 4", len(seen))
	}
	for i, h := range seen {
		if h != "Bearer tok-123" {
			t.Fatalf("request %d missing auth header, got %q", i, h)
		}
	}
}

func TestInitRejectsMissingUploadID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "initialized"})
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Init(context.Background(), InitRequest{Filename: "f", FileSize: 1, TotalChunks: 1})

	var initErr *SessionInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected SessionInitError, got %T: %v", err, err)
	}
}

func TestChunkRequestCarriesMultipartFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("uploadId"); got != "u-42" {
			t.Errorf("uploadId = %q, want u-42", got)
		}
		if got := r.FormValue("chunkIndex"); got != "7" {
			t.Errorf("chunkIndex = %q, want 7", got)
		}
		file, _, err := r.FormFile("chunk")
		if err != nil {
			t.Errorf("chunk part: %v", err)
		} else {
			file.Close()
		}
		json.NewEncoder(w).Encode(ChunkResponse{Received: true})
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL).SendChunk(context.Background(), "u-42", 7, []byte("payload")); err != nil {
		t.Fatalf("sendChunk: %v", err)
	}
}
