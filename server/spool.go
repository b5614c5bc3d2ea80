// ABOUTME: On-disk chunk spool: one directory per session holding <index>.chunk files.
// ABOUTME: Writes are idempotent per index; Assemble concatenates chunks in index order into the artifact.

package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Spool stores chunk bytes durably until a session completes or aborts.
// Layout: <root>/<uploadID>/<index>.chunk.
type Spool struct {
	root string
}

// NewSpool creates the spool root directory if needed.
func NewSpool(root string) (*Spool, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}
	return &Spool{root: root}, nil
}

// sessionDir returns the per-session chunk directory path.
func (sp *Spool) sessionDir(uploadID string) string {
	return filepath.Join(sp.root, uploadID)
}

// WriteChunk stores the bytes for one chunk index. A chunk that already
// exists on disk is left untouched and its stored size is returned, making
// duplicate delivery a no-op. The write goes through a temp file and rename
// so a crashed write never leaves a partial chunk behind.
func (sp *Spool) WriteChunk(uploadID string, index int, r io.Reader) (int64, error) {
	dir := sp.sessionDir(uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating session directory: %w", err)
	}

	dst := filepath.Join(dir, fmt.Sprintf("%d.chunk", index))
	if fi, err := os.Stat(dst); err == nil {
		return fi.Size(), nil
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%d.chunk.*", index))
	if err != nil {
		return 0, fmt.Errorf("creating chunk temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("writing chunk bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("closing chunk temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("placing chunk file: %w", err)
	}
	return n, nil
}

// HasChunk reports whether the chunk file for an index exists.
func (sp *Spool) HasChunk(uploadID string, index int) bool {
	_, err := os.Stat(filepath.Join(sp.sessionDir(uploadID), fmt.Sprintf("%d.chunk", index)))
	return err == nil
}

// Assemble concatenates chunks 0..totalChunks-1 in index order into dstPath
// and returns the artifact's byte length. A missing chunk file or a write
// failure removes the partial artifact before returning.
func (sp *Spool) Assemble(uploadID string, totalChunks int, dstPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating artifact directory: %w", err)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("creating artifact file: %w", err)
	}

	var written int64
	for i := 0; i < totalChunks; i++ {
		n, err := sp.appendChunk(out, uploadID, i)
		if err != nil {
			out.Close()
			os.Remove(dstPath)
			return 0, err
		}
		written += n
	}

	if err := out.Close(); err != nil {
		os.Remove(dstPath)
		return 0, fmt.Errorf("closing artifact file: %w", err)
	}
	return written, nil
}

func (sp *Spool) appendChunk(out io.Writer, uploadID string, index int) (int64, error) {
	path := filepath.Join(sp.sessionDir(uploadID), fmt.Sprintf("%d.chunk", index))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("chunk %d missing from spool", index)
		}
		return 0, fmt.Errorf("opening chunk %d: %w", index, err)
	}
	defer f.Close()

	n, err := io.Copy(out, f)
	if err != nil {
		return 0, fmt.Errorf("appending chunk %d: %w", index, err)
	}
	return n, nil
}

// Remove deletes a session's chunk directory. Missing directories are fine.
func (sp *Spool) Remove(uploadID string) error {
	if err := os.RemoveAll(sp.sessionDir(uploadID)); err != nil {
		return fmt.Errorf("removing session chunks: %w", err)
	}
	return nil
}
