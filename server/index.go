// ABOUTME: SQLite-backed index of finalized artifacts for queries without scanning the upload directory.
// ABOUTME: A queryable cache over the artifact files, not the source of truth for their bytes.

package server

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Artifact is one finalized upload recorded in the index.
type Artifact struct {
	ArtifactID       string
	UploadID         string
	Filename         string
	Size             int64
	MIMEType         string
	Path             string
	ProcessingStatus string
	CreatedAt        time.Time
}

// ArtifactIndex is a SQLite-backed index of finalized artifacts.
type ArtifactIndex struct {
	db *sql.DB
}

// OpenIndex opens or creates the artifact index database at the given path.
func OpenIndex(path string) (*ArtifactIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS artifacts (
			artifact_id TEXT PRIMARY KEY,
			upload_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL,
			mime_type TEXT NOT NULL,
			path TEXT NOT NULL,
			processing_status TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &ArtifactIndex{db: db}, nil
}

// Close closes the SQLite database connection.
func (idx *ArtifactIndex) Close() error {
	return idx.db.Close()
}

// NewArtifactID generates a sortable artifact identifier.
func NewArtifactID() string {
	return ulid.Make().String()
}

// Record inserts a finalized artifact row.
func (idx *ArtifactIndex) Record(a Artifact) error {
	_, err := idx.db.Exec(
		`INSERT INTO artifacts (artifact_id, upload_id, filename, size, mime_type, path, processing_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ArtifactID,
		a.UploadID,
		a.Filename,
		a.Size,
		a.MIMEType,
		a.Path,
		a.ProcessingStatus,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// SetProcessingStatus updates the document-processing outcome for an artifact.
func (idx *ArtifactIndex) SetProcessingStatus(artifactID, status string) error {
	res, err := idx.db.Exec(
		`UPDATE artifacts SET processing_status = ? WHERE artifact_id = ?`,
		status, artifactID,
	)
	if err != nil {
		return fmt.Errorf("update processing status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("artifact %s not found", artifactID)
	}
	return nil
}

// Get returns one artifact by ID.
func (idx *ArtifactIndex) Get(artifactID string) (*Artifact, error) {
	row := idx.db.QueryRow(
		`SELECT artifact_id, upload_id, filename, size, mime_type, path, processing_status, created_at
		 FROM artifacts WHERE artifact_id = ?`, artifactID)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}
	return a, nil
}

// List returns all artifacts, newest first.
func (idx *ArtifactIndex) List() ([]Artifact, error) {
	rows, err := idx.db.Query(
		`SELECT artifact_id, upload_id, filename, size, mime_type, path, processing_status, created_at
		 FROM artifacts ORDER BY created_at DESC, artifact_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var a Artifact
	var created string
	if err := row.Scan(&a.ArtifactID, &a.UploadID, &a.Filename, &a.Size, &a.MIMEType, &a.Path, &a.ProcessingStatus, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	a.CreatedAt = t
	return &a, nil
}
