// ABOUTME: Bubble Tea message types used in the upload progress UI message loop.
// ABOUTME: Each type wraps a coordinator event for the tea.Msg interface (which is interface{}).
package tui

import "github.com/2389-research/uplink/upload"

// ProgressMsg wraps a coordinator progress update for the Bubble Tea message loop.
type ProgressMsg struct {
	Progress upload.Progress
}

// ResultMsg signals that the upload has finished, successfully or not.
type ResultMsg struct {
	Response *upload.CompleteResponse
	Err      error
}
