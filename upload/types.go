// ABOUTME: Wire types for the four-operation upload sub-protocol plus the status query.
// ABOUTME: Field names match the JSON bodies exchanged with the upload server.

package upload

// InitRequest is the body of POST {base}/init. Metadata is a free-form
// mapping passed through to the server untouched, e.g. a target conversation
// association.
type InitRequest struct {
	Filename    string         `json:"filename"`
	FileSize    int64          `json:"fileSize"`
	FileType    string         `json:"fileType"`
	TotalChunks int            `json:"totalChunks"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitResponse carries the server-allocated session identifier.
type InitResponse struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
}

// ProgressInfo is the server-side view of upload progress, returned from
// chunk and status calls.
type ProgressInfo struct {
	Uploaded   int `json:"uploaded"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ChunkResponse acknowledges a stored chunk.
type ChunkResponse struct {
	UploadID   string       `json:"uploadId"`
	ChunkIndex int          `json:"chunkIndex"`
	Received   bool         `json:"received"`
	Progress   ProgressInfo `json:"progress"`
}

// CompleteResponse describes the finalized artifact.
type CompleteResponse struct {
	UploadID         string `json:"uploadId"`
	ArtifactID       string `json:"artifactId,omitempty"`
	Filename         string `json:"filename"`
	FileSize         int64  `json:"fileSize"`
	FileType         string `json:"fileType"`
	Status           string `json:"status"`
	ProcessingStatus string `json:"processingStatus,omitempty"`
}

// AbortResponse acknowledges a discarded session.
type AbortResponse struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
}

// StatusResponse reports the current state of an upload session.
type StatusResponse struct {
	UploadID string       `json:"uploadId"`
	Filename string       `json:"filename"`
	FileSize int64        `json:"fileSize"`
	FileType string       `json:"fileType"`
	Status   string       `json:"status"`
	Progress ProgressInfo `json:"progress"`
}

// Progress is the payload handed to the client progress callback after each
// acknowledged chunk. Percent is round(UploadedChunks / TotalChunks * 100)
// and reaches exactly 100 only after the final chunk's ack.
type Progress struct {
	UploadID       string
	TotalChunks    int
	UploadedChunks int
	Percent        int
}

// ProgressFunc receives a Progress update after every acknowledged chunk.
// UploadedChunks is non-decreasing and grows by exactly one per ack.
type ProgressFunc func(Progress)
