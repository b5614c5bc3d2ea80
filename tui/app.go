// ABOUTME: Bubble Tea model rendering a single upload: filename, progress bar, and chunk counter.
// ABOUTME: Run drives a coordinator in the background and feeds its events into the message loop.
package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/uplink/chunker"
	"github.com/2389-research/uplink/upload"
)

// Model is the Bubble Tea model for one upload in flight.
type Model struct {
	filename string
	total    int
	uploaded int
	percent  int
	bar      progress.Model
	width    int

	done     bool
	canceled bool
	err      error
	result   *upload.CompleteResponse
}

// NewModel creates a Model for a file that splits into total chunks.
func NewModel(filename string, total int) Model {
	return Model{
		filename: filename,
		total:    total,
		bar:      progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 8
		if barWidth > 60 {
			barWidth = 60
		}
		if barWidth > 0 {
			m.bar.Width = barWidth
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.done {
				m.canceled = true
			}
			return m, tea.Quit
		}
		return m, nil

	case ProgressMsg:
		m.uploaded = msg.Progress.UploadedChunks
		m.percent = msg.Progress.Percent
		return m, m.bar.SetPercent(float64(msg.Progress.UploadedChunks) / float64(msg.Progress.TotalChunks))

	case ResultMsg:
		m.done = true
		m.result = msg.Response
		m.err = msg.Err
		return m, tea.Sequence(m.bar.SetPercent(1.0), tea.Quit)

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	header := titleStyle.Render("uploading " + m.filename)

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render(fmt.Sprintf("failed: %v", m.err))
	case m.done:
		status = doneStyle.Render(fmt.Sprintf("complete (%d chunks)", m.total))
	default:
		status = statusStyle.Render(fmt.Sprintf("chunk %d/%d (%d%%)", m.uploaded, m.total, m.percent))
	}

	return header + "\n\n  " + m.bar.View() + "\n\n" + status + "\n"
}

// Run uploads src with a live progress display and returns the finalized
// artifact descriptor. Quitting the UI before the upload finishes cancels the
// transfer via the context.
func Run(ctx context.Context, client *upload.Client, src io.ReaderAt, info upload.FileInfo, chunkSize int64) (*upload.CompleteResponse, error) {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(info.Name, chunker.Count(info.Size, chunkSize)))

	co := upload.NewCoordinator(client,
		upload.WithChunkSize(chunkSize),
		upload.WithProgress(func(pr upload.Progress) {
			p.Send(ProgressMsg{Progress: pr})
		}),
	)

	go func() {
		resp, err := co.Upload(ctx, src, info)
		p.Send(ResultMsg{Response: resp, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running progress ui: %w", err)
	}

	m := final.(Model)
	if m.canceled {
		return nil, fmt.Errorf("upload canceled")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}
