// ABOUTME: Drives a whole upload: init, ordered chunk transmission with progress, then complete.
// ABOUTME: Sequential by default (one in-flight chunk); bounded pipelining is opt-in.

package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sync"

	"github.com/2389-research/uplink/chunker"
)

// FileInfo is the client-declared metadata for an upload. The server does not
// verify Size or MIMEType against the actual bytes until finalize.
type FileInfo struct {
	Name     string
	Size     int64
	MIMEType string
	Metadata map[string]any
}

// Coordinator runs the upload protocol end to end against a Client. A single
// Coordinator may drive many independent uploads concurrently; per-upload
// state lives on the stack of each Upload call.
type Coordinator struct {
	client      *Client
	chunkSize   int64
	progress    ProgressFunc
	retry       RetryPolicy
	maxInFlight int
}

// CoordinatorOption is a functional option for configuring a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithChunkSize overrides the default 1 MiB chunk size.
func WithChunkSize(size int64) CoordinatorOption {
	return func(co *Coordinator) {
		co.chunkSize = size
	}
}

// WithProgress installs a callback invoked after every acknowledged chunk.
func WithProgress(fn ProgressFunc) CoordinatorOption {
	return func(co *Coordinator) {
		co.progress = fn
	}
}

// WithRetryPolicy wraps init and chunk requests in the given retry policy.
// The default is RetryPolicyNone: every failure surfaces immediately.
func WithRetryPolicy(p RetryPolicy) CoordinatorOption {
	return func(co *Coordinator) {
		co.retry = p
	}
}

// WithMaxInFlight allows up to n chunk requests in flight at once. Progress
// still advances by exactly one per ack. Values below 2 keep the sequential
// send loop.
func WithMaxInFlight(n int) CoordinatorOption {
	return func(co *Coordinator) {
		co.maxInFlight = n
	}
}

// NewCoordinator creates a Coordinator around the given Client.
func NewCoordinator(client *Client, opts ...CoordinatorOption) *Coordinator {
	co := &Coordinator{
		client:    client,
		chunkSize: chunker.DefaultChunkSize,
		retry:     RetryPolicyNone(),
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// Upload runs the full protocol for one file: it opens a session, streams
// every chunk, and finalizes. On a chunk failure the loop stops and the error
// is returned with no further chunks sent; the session is left active on the
// server for the caller to abort or for the server to reap. There is no
// automatic restart: a retried upload begins with a fresh Init.
func (co *Coordinator) Upload(ctx context.Context, src io.ReaderAt, info FileInfo) (*CompleteResponse, error) {
	plan := chunker.Plan(info.Size, co.chunkSize)
	total := len(plan)

	var uploadID string
	err := co.retry.run(ctx, func() error {
		var initErr error
		uploadID, initErr = co.client.Init(ctx, InitRequest{
			Filename:    info.Name,
			FileSize:    info.Size,
			FileType:    info.MIMEType,
			TotalChunks: total,
			Metadata:    info.Metadata,
		})
		return initErr
	})
	if err != nil {
		return nil, err
	}

	// Zero-length files skip chunk transmission entirely; the session still
	// exists and finalize produces an empty artifact.
	if total > 0 {
		if co.maxInFlight > 1 {
			err = co.sendPipelined(ctx, uploadID, src, plan)
		} else {
			err = co.sendSequential(ctx, uploadID, src, plan)
		}
		if err != nil {
			return nil, err
		}
	}

	return co.client.Complete(ctx, uploadID)
}

// Abort discards a session as best-effort cleanup. Failures are logged and
// swallowed; a session the server has already reclaimed is not an error worth
// surfacing.
func (co *Coordinator) Abort(ctx context.Context, uploadID string) {
	if err := co.client.Abort(ctx, uploadID); err != nil {
		log.Printf("upload abort failed uploadId=%s err=%v", uploadID, err)
	}
}

// sendSequential transmits chunks strictly in ascending index order, awaiting
// each ack before sending the next. One request in flight bounds memory use
// and makes failure attribution trivial.
func (co *Coordinator) sendSequential(ctx context.Context, uploadID string, src io.ReaderAt, plan []chunker.Range) error {
	uploaded := 0
	for _, r := range plan {
		if err := co.sendOne(ctx, uploadID, src, r); err != nil {
			return err
		}
		uploaded++
		co.reportProgress(uploadID, len(plan), uploaded)
	}
	return nil
}

// sendPipelined transmits chunks with up to maxInFlight requests in flight.
// The progress callback still fires once per ack with a counter that grows by
// exactly one, and the first failure cancels the remaining sends.
func (co *Coordinator) sendPipelined(ctx context.Context, uploadID string, src io.ReaderAt, plan []chunker.Range) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, co.maxInFlight)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		uploaded int
		firstErr error
	)

	for _, r := range plan {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(r chunker.Range) {
			defer wg.Done()
			defer func() { <-sem }()

			err := co.sendOne(ctx, uploadID, src, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				cancel()
				return
			}
			uploaded++
			co.reportProgress(uploadID, len(plan), uploaded)
		}(r)
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// sendOne reads one range from the source and transmits it, applying the
// retry policy. The chunk bytes are read once and reused across attempts.
func (co *Coordinator) sendOne(ctx context.Context, uploadID string, src io.ReaderAt, r chunker.Range) error {
	buf := make([]byte, r.Len())
	n, err := src.ReadAt(buf, r.Start)
	if err != nil && !(err == io.EOF && int64(n) == r.Len()) {
		return newChunkUploadError(r.Index, 0, fmt.Errorf("reading source bytes [%d, %d): %w", r.Start, r.End, err))
	}

	return co.retry.run(ctx, func() error {
		_, sendErr := co.client.SendChunk(ctx, uploadID, r.Index, buf)
		return sendErr
	})
}

func (co *Coordinator) reportProgress(uploadID string, total, uploaded int) {
	if co.progress == nil {
		return
	}
	co.progress(Progress{
		UploadID:       uploadID,
		TotalChunks:    total,
		UploadedChunks: uploaded,
		Percent:        int(math.Round(float64(uploaded) / float64(total) * 100)),
	})
}
