package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jamesainslie/etch/pkg/etch/writer"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateWriting AppState = iota
	StateVerifying
	StateDone
	StateFailed
)

// maxFlushRows bounds the flush history pane.
const maxFlushRows = 4

// Options configures the TUI application.
type Options struct {
	ImagePath   string
	Format      string
	TargetLabel string
	WriteOpts   writer.Options
}

// Model is the main Bubble Tea model for the etch TUI.
type Model struct {
	state      AppState
	writeModel WriteModel
	options    Options

	// Write state
	ctx          context.Context
	cancel       context.CancelFunc
	w            *writer.Writer
	result       *writer.Result
	err          error
	progressChan chan writer.Progress

	// Window dimensions
	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) (Model, error) {
	ctx, cancel := context.WithCancel(context.Background())

	progressChan := make(chan writer.Progress, 100)
	wopts := opts.WriteOpts
	wopts.OnProgress = func(p writer.Progress) {
		select {
		case progressChan <- p:
		default:
			// Channel full, skip this update
		}
	}

	w, err := writer.New(wopts)
	if err != nil {
		cancel()
		return Model{}, err
	}

	return Model{
		state:        StateWriting,
		writeModel:   NewWriteModel(opts.ImagePath, opts.Format, opts.TargetLabel, wopts.Sync),
		options:      opts,
		ctx:          ctx,
		cancel:       cancel,
		w:            w,
		progressChan: progressChan,
		width:        80,
		height:       24,
	}, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.writeModel.Init(),
		m.startWrite(),
		m.listenForProgress(),
		m.tickUI(),
	)
}

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// tickUI returns a command that periodically triggers UI updates.
func (m Model) tickUI() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.writeModel.width = msg.Width
		m.writeModel.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickUIMsg:
		// Keep the UI and the flush pane refreshing while the write runs
		if m.state == StateWriting || m.state == StateVerifying {
			m.writeModel.SetFlushes(lastFlushes(m.w.FlushEvents(), maxFlushRows))
			return m, m.tickUI()
		}
		return m, nil

	case ProgressMsg:
		m.writeModel.SetProgress(writer.Progress(msg))
		if msg.Verifying && m.state == StateWriting {
			m.state = StateVerifying
		}
		// Keep listening for more progress
		return m, m.listenForProgress()

	case WriteCompleteMsg:
		m.result = msg.Result
		m.err = msg.Err
		m.writeModel.SetDone(msg.Err)
		m.writeModel.SetFlushes(lastFlushes(m.w.FlushEvents(), maxFlushRows))
		if msg.Result != nil {
			m.writeModel.SetResult(msg.Result.Digest, msg.Result.Verified)
		}
		if msg.Err != nil {
			m.state = StateFailed
		} else {
			m.state = StateDone
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateWriting || m.state == StateVerifying {
			var cmd tea.Cmd
			m.writeModel.spinner, cmd = m.writeModel.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.state {
	case StateWriting, StateVerifying:
		switch key {
		case "ctrl+c", "q", "esc":
			// Quitting immediately would abandon a write in flight. Cancel
			// the context instead; the writer notices within one block and
			// delivers WriteCompleteMsg.
			m.writeModel.SetCancelling()
			m.cancel()
		}

	case StateDone, StateFailed:
		switch key {
		case "ctrl+c", "q", "esc", "enter":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	return m.writeModel.View()
}

// startWrite starts the write in the background.
func (m Model) startWrite() tea.Cmd {
	progressChan := m.progressChan
	w := m.w
	ctx := m.ctx
	return func() tea.Msg {
		result, err := w.Run(ctx)

		// Close progress channel when the write completes
		close(progressChan)

		return WriteCompleteMsg{Result: result, Err: err}
	}
}

// listenForProgress returns a command that waits for progress updates.
func (m Model) listenForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		p, ok := <-progressChan
		if !ok {
			// Channel closed, write is done
			return nil
		}
		return ProgressMsg(p)
	}
}

// lastFlushes trims the flush history to the most recent n events.
func lastFlushes(events []writer.FlushEvent, n int) []writer.FlushEvent {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// Run starts the TUI application and blocks until the write finishes and
// the completion screen is dismissed. The caller prints its own summary
// afterwards; the alternate screen is restored on return.
func Run(opts Options) (*writer.Result, error) {
	model, err := NewModel(opts)
	if err != nil {
		return nil, err
	}
	defer model.cancel()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected final model type %T", final)
	}
	if m.result == nil && m.err == nil {
		// The program quit before the writer reported back.
		return nil, context.Canceled
	}
	return m.result, m.err
}
