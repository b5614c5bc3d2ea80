// ABOUTME: HTTP transport for the upload sub-protocol: init, chunk, complete, abort, status.
// ABOUTME: Non-2xx responses are the sole failure signal; bodies beyond the documented fields are ignored.

package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const defaultRequestTimeout = 60 * time.Second

// Client speaks the four-operation upload sub-protocol against a server base
// URL (e.g. "http://127.0.0.1:2389/api/upload"). Caller-supplied default
// headers are forwarded as-is on every request; authentication is opaque to
// this layer.
type Client struct {
	BaseURL        string
	DefaultHeaders map[string]string
	HTTPClient     *http.Client
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithHeader adds a default header sent on every request, e.g. an
// Authorization header supplied by the caller.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.DefaultHeaders[key] = value
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.HTTPClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a Client for the given protocol base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:        baseURL,
		DefaultHeaders: make(map[string]string),
		HTTPClient:     &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init requests a new upload session and returns the server-allocated
// session identifier. The caller must not proceed to chunk transmission
// without a valid ID.
func (c *Client) Init(ctx context.Context, req InitRequest) (string, error) {
	var rsp InitResponse
	status, err := c.postJSON(ctx, "/init", req, &rsp)
	if err != nil {
		return "", newSessionInitError(status, err)
	}
	if rsp.UploadID == "" {
		return "", newSessionInitError(status, fmt.Errorf("server response missing uploadId"))
	}
	return rsp.UploadID, nil
}

// SendChunk transmits one chunk as a multipart body. Must be called once per
// index in [0, totalChunks); duplicate delivery of an index is idempotent on
// the server side.
func (c *Client) SendChunk(ctx context.Context, uploadID string, index int, data []byte) (*ChunkResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("uploadId", uploadID); err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("encoding form field: %w", err))
	}
	if err := mw.WriteField("chunkIndex", strconv.Itoa(index)); err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("encoding form field: %w", err))
	}
	part, err := mw.CreateFormFile("chunk", fmt.Sprintf("%d.chunk", index))
	if err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("creating form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("writing chunk bytes: %w", err))
	}
	if err := mw.Close(); err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("finalizing multipart body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chunk", &body)
	if err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.applyHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, newChunkUploadError(index, 0, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newChunkUploadError(index, resp.StatusCode, fmt.Errorf("server returned status %d", resp.StatusCode))
	}

	var rsp ChunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&rsp); err != nil {
		return nil, newChunkUploadError(index, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return &rsp, nil
}

// Complete signals all chunks sent. The server validates completeness,
// reassembles the artifact, and releases the session. A 400 response maps to
// IncompleteUploadError; any other failure maps to ReassemblyError.
func (c *Client) Complete(ctx context.Context, uploadID string) (*CompleteResponse, error) {
	var rsp CompleteResponse
	status, err := c.postJSON(ctx, "/complete", map[string]string{"uploadId": uploadID}, &rsp)
	if err != nil {
		if status == http.StatusBadRequest {
			return nil, &IncompleteUploadError{
				UploadError: UploadError{Message: "completing upload", Cause: err},
			}
		}
		return nil, &ReassemblyError{
			UploadError: UploadError{Message: "completing upload", Cause: err},
			StatusCode:  status,
		}
	}
	return &rsp, nil
}

// Abort discards a session and any partially stored chunks. Aborting a
// session that no longer exists returns an AbortError; callers treat abort
// as best-effort cleanup and log rather than escalate.
func (c *Client) Abort(ctx context.Context, uploadID string) error {
	var rsp AbortResponse
	status, err := c.postJSON(ctx, "/abort", map[string]string{"uploadId": uploadID}, &rsp)
	if err != nil {
		return &AbortError{
			UploadError: UploadError{Message: "aborting upload", Cause: err},
			StatusCode:  status,
		}
	}
	return nil
}

// Status reports the server's view of an upload session.
func (c *Client) Status(ctx context.Context, uploadID string) (*StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/status/"+uploadID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.applyHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upload status: server returned status %d", resp.StatusCode)
	}

	var rsp StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&rsp); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return &rsp, nil
}

// postJSON executes a JSON POST against path and decodes a 2xx body into out.
// It returns the HTTP status code (0 when the request never got a response)
// and an error for transport failures or non-2xx statuses.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.applyHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message; servers return a
		// short JSON detail here but the protocol does not interpret it.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(detail) > 0 {
			return resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		}
		return resp.StatusCode, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, v := range c.DefaultHeaders {
		req.Header.Set(k, v)
	}
}
