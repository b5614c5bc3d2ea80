// ABOUTME: Upload server wiring the session store, chunk spool, artifact index, and document
// ABOUTME: extractor behind a single chi router serving the four-operation upload protocol.
package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/uplink/docproc"
)

// Server owns all server-side upload state: in-memory sessions, the on-disk
// chunk spool, the finalized-artifact directory, and the SQLite index.
type Server struct {
	cfg       Config
	store     *Store
	spool     *Spool
	index     *ArtifactIndex
	extractor *docproc.Extractor
	router    chi.Router
	uploadDir string

	stopCleanup func()
}

// NewServer creates a Server with the given configuration, creating the data
// directories and opening the artifact index. The TTL reaper for abandoned
// sessions starts immediately; Close stops it.
func NewServer(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()

	uploadDir := filepath.Join(cfg.DataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	spool, err := NewSpool(filepath.Join(uploadDir, "chunks"))
	if err != nil {
		return nil, err
	}

	index, err := OpenIndex(filepath.Join(cfg.DataDir, "artifacts.db"))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		store:     NewStore(cfg.MaxSessions, cfg.SessionTTL.Std()),
		spool:     spool,
		index:     index,
		extractor: docproc.NewExtractor(),
		uploadDir: uploadDir,
	}

	// Sessions dropped by capacity eviction or TTL reaping leave spooled
	// chunks behind; reclaim them here.
	s.store.OnEvict = func(sess *Session) {
		sess.MarkAborted()
		if err := spool.Remove(sess.UploadID); err != nil {
			log.Printf("evict cleanup failed uploadId=%s err=%v", sess.UploadID, err)
		}
		log.Printf("session evicted uploadId=%s received=%d/%d", sess.UploadID, sess.ReceivedCount(), sess.TotalChunks)
	}
	s.stopCleanup = s.store.StartCleanup(cfg.CleanupInterval.Std())

	s.router = s.buildRouter()
	return s, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the session reaper and closes the artifact index.
func (s *Server) Close() error {
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	return s.index.Close()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api/upload", func(r chi.Router) {
		r.Post("/init", s.handleInit)
		r.Post("/chunk", s.handleChunk)
		r.Post("/complete", s.handleComplete)
		r.Post("/abort", s.handleAbort)
		r.Get("/status/{uploadID}", s.handleStatus)
	})

	r.Get("/api/artifacts", s.handleArtifactList)

	return r
}
