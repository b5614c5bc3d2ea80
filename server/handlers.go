// ABOUTME: HTTP handlers for the upload protocol: init, chunk, complete, abort, and status.
// ABOUTME: Non-2xx statuses are the protocol's sole failure signal; error bodies carry a short JSON detail.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/uplink/upload"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInit creates a new upload session and returns its ID.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req upload.InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid init request body")
		return
	}

	if req.Filename == "" {
		respondDetail(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.FileSize < 0 || req.TotalChunks < 0 {
		respondDetail(w, http.StatusBadRequest, "fileSize and totalChunks must be non-negative")
		return
	}
	if req.FileSize > 0 && req.TotalChunks == 0 {
		respondDetail(w, http.StatusBadRequest, "non-empty file declared with zero chunks")
		return
	}

	sess := s.store.Create(filepath.Base(req.Filename), req.FileSize, req.FileType, req.TotalChunks, req.Metadata)
	log.Printf("upload init uploadId=%s filename=%s size=%d chunks=%d", sess.UploadID, sess.Filename, sess.DeclaredSize, sess.TotalChunks)

	respondJSON(w, http.StatusOK, upload.InitResponse{
		UploadID: sess.UploadID,
		Status:   string(StatusInitialized),
	})
}

// handleChunk stores one chunk from a multipart body. Duplicate delivery of
// an index acknowledges without growing the received set.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	// Chunk bodies are bounded; the slack covers multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxChunkBytes+(64<<10))

	if err := r.ParseMultipartForm(s.cfg.MaxChunkBytes); err != nil {
		respondDetail(w, http.StatusRequestEntityTooLarge, "chunk body too large or malformed")
		return
	}

	uploadID := r.FormValue("uploadId")
	sess, ok := s.store.Get(uploadID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Upload session not found")
		return
	}

	index, err := strconv.Atoi(r.FormValue("chunkIndex"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "chunkIndex must be an integer")
		return
	}
	if index < 0 || index >= sess.TotalChunks {
		respondDetail(w, http.StatusBadRequest, "Invalid chunk index")
		return
	}

	file, _, err := r.FormFile("chunk")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "chunk file part missing")
		return
	}
	defer file.Close()

	// Durable write first, then record the index, so the received set never
	// names a chunk the spool does not hold.
	if _, err := s.spool.WriteChunk(uploadID, index, file); err != nil {
		log.Printf("chunk write failed uploadId=%s index=%d err=%v", uploadID, index, err)
		respondDetail(w, http.StatusInternalServerError, "failed to store chunk")
		return
	}

	if _, err := sess.MarkReceived(index); err != nil {
		respondDetail(w, http.StatusConflict, err.Error())
		return
	}

	uploaded := sess.ReceivedCount()
	respondJSON(w, http.StatusOK, upload.ChunkResponse{
		UploadID:   uploadID,
		ChunkIndex: index,
		Received:   true,
		Progress: upload.ProgressInfo{
			Uploaded:   uploaded,
			Total:      sess.TotalChunks,
			Percentage: percent(uploaded, sess.TotalChunks),
		},
	})
}

// handleComplete validates the received set, reassembles the artifact, and
// releases the session. Missing chunks are a 400; reassembly failures are a
// 500 and leave the session active.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UploadID string `json:"uploadId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid complete request body")
		return
	}

	sess, ok := s.store.Get(req.UploadID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Upload session not found")
		return
	}

	if err := sess.BeginComplete(); err != nil {
		var incomplete *incompleteError
		if errors.As(err, &incomplete) {
			respondDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		respondDetail(w, http.StatusConflict, err.Error())
		return
	}

	artifactPath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", sess.UploadID, sess.Filename))
	size, err := s.spool.Assemble(sess.UploadID, sess.TotalChunks, artifactPath)
	if err != nil {
		sess.FailComplete()
		log.Printf("reassembly failed uploadId=%s err=%v", sess.UploadID, err)
		respondDetail(w, http.StatusInternalServerError, "failed to assemble uploaded file")
		return
	}

	processingStatus := "skipped"
	if s.extractor.Supported(sess.MIMEType) {
		processingStatus = "pending"
	}

	artifact := Artifact{
		ArtifactID:       NewArtifactID(),
		UploadID:         sess.UploadID,
		Filename:         sess.Filename,
		Size:             size,
		MIMEType:         sess.MIMEType,
		Path:             artifactPath,
		ProcessingStatus: processingStatus,
		CreatedAt:        time.Now(),
	}
	if err := s.index.Record(artifact); err != nil {
		// The artifact file is the source of truth; a failed index write is
		// logged, not fatal.
		log.Printf("artifact index write failed uploadId=%s err=%v", sess.UploadID, err)
	}

	sess.FinishComplete()
	s.store.Remove(sess.UploadID)
	log.Printf("upload complete uploadId=%s artifactId=%s size=%d", sess.UploadID, artifact.ArtifactID, size)

	go func() {
		if err := s.spool.Remove(sess.UploadID); err != nil {
			log.Printf("chunk cleanup failed uploadId=%s err=%v", sess.UploadID, err)
		}
	}()
	if processingStatus == "pending" {
		go s.processArtifact(artifact)
	}

	respondJSON(w, http.StatusOK, upload.CompleteResponse{
		UploadID:         sess.UploadID,
		ArtifactID:       artifact.ArtifactID,
		Filename:         sess.Filename,
		FileSize:         size,
		FileType:         sess.MIMEType,
		Status:           string(StatusCompleted),
		ProcessingStatus: processingStatus,
	})
}

// handleAbort discards a session and its spooled chunks.
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UploadID string `json:"uploadId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid abort request body")
		return
	}

	sess, ok := s.store.Remove(req.UploadID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Upload session not found")
		return
	}

	sess.MarkAborted()
	log.Printf("upload aborted uploadId=%s received=%d/%d", sess.UploadID, sess.ReceivedCount(), sess.TotalChunks)

	go func() {
		if err := s.spool.Remove(sess.UploadID); err != nil {
			log.Printf("chunk cleanup failed uploadId=%s err=%v", sess.UploadID, err)
		}
	}()

	respondJSON(w, http.StatusOK, upload.AbortResponse{
		UploadID: sess.UploadID,
		Status:   string(StatusAborted),
	})
}

// handleStatus reports a session's progress.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	sess, ok := s.store.Get(uploadID)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Upload session not found")
		return
	}

	uploaded := sess.ReceivedCount()
	respondJSON(w, http.StatusOK, upload.StatusResponse{
		UploadID: sess.UploadID,
		Filename: sess.Filename,
		FileSize: sess.DeclaredSize,
		FileType: sess.MIMEType,
		Status:   string(sess.Status()),
		Progress: upload.ProgressInfo{
			Uploaded:   uploaded,
			Total:      sess.TotalChunks,
			Percentage: percent(uploaded, sess.TotalChunks),
		},
	})
}

// handleArtifactList returns finalized artifacts, newest first.
func (s *Server) handleArtifactList(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.index.List()
	if err != nil {
		log.Printf("artifact list failed err=%v", err)
		respondDetail(w, http.StatusInternalServerError, "failed to list artifacts")
		return
	}

	type entry struct {
		ArtifactID       string `json:"artifactId"`
		UploadID         string `json:"uploadId"`
		Filename         string `json:"filename"`
		Size             int64  `json:"size"`
		FileType         string `json:"fileType"`
		ProcessingStatus string `json:"processingStatus"`
		CreatedAt        string `json:"createdAt"`
	}
	out := make([]entry, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, entry{
			ArtifactID:       a.ArtifactID,
			UploadID:         a.UploadID,
			Filename:         a.Filename,
			Size:             a.Size,
			FileType:         a.MIMEType,
			ProcessingStatus: a.ProcessingStatus,
			CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// processArtifact runs document extraction for a finalized artifact and
// records the outcome. Extraction failures never affect the upload.
func (s *Server) processArtifact(a Artifact) {
	result, err := s.extractor.Process(a.Path, a.MIMEType)
	if err != nil {
		log.Printf("document processing failed artifactId=%s err=%v", a.ArtifactID, err)
		if err := s.index.SetProcessingStatus(a.ArtifactID, "failed"); err != nil {
			log.Printf("processing status update failed artifactId=%s err=%v", a.ArtifactID, err)
		}
		return
	}
	log.Printf("document processed artifactId=%s elements=%d", a.ArtifactID, result.ElementCount)
	if err := s.index.SetProcessingStatus(a.ArtifactID, "completed"); err != nil {
		log.Printf("processing status update failed artifactId=%s err=%v", a.ArtifactID, err)
	}
}

// percent reports rounded progress. A zero-chunk session is trivially
// complete.
func percent(uploaded, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(uploaded) / float64(total) * 100))
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondDetail(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"detail": msg})
}
