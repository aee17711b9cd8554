package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/types"
	"github.com/jamesainslie/etch/pkg/etch/writer"
)

// WriteModel represents the write phase of the TUI.
type WriteModel struct {
	progress   writer.Progress
	spinner    spinner.Model
	startTime  time.Time
	width      int
	height     int
	imagePath  string
	format     string
	target     string
	syncCfg    syncpolicy.SyncConfig
	flushes    []writer.FlushEvent
	digest     string
	verified   bool
	cancelling bool
	done       bool
	err        error
}

// ProgressMsg is sent when write progress is updated.
type ProgressMsg writer.Progress

// WriteCompleteMsg is sent when the write is complete.
type WriteCompleteMsg struct {
	Result *writer.Result
	Err    error
}

// NewWriteModel creates a new write model.
func NewWriteModel(imagePath, format, target string, syncCfg syncpolicy.SyncConfig) WriteModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return WriteModel{
		spinner:   s,
		startTime: time.Now(),
		width:     80,
		height:    24,
		imagePath: imagePath,
		format:    format,
		target:    target,
		syncCfg:   syncCfg,
	}
}

// Init initializes the write model.
func (m WriteModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the write model.
func (m WriteModel) Update(msg tea.Msg) (WriteModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ProgressMsg:
		m.progress = writer.Progress(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the write model.
func (m WriteModel) View() string {
	var b strings.Builder

	// Calculate content width (accounting for border padding)
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	// Add top margin for visual spacing
	b.WriteString("\n")

	// Header
	header := m.renderHeader(contentWidth)
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	// Image and target details
	b.WriteString(m.renderDetails(contentWidth))
	b.WriteString("\n")

	// Status line
	b.WriteString(m.renderStatus(contentWidth))
	b.WriteString("\n")

	// Progress bar
	b.WriteString("\n")
	b.WriteString(m.renderProgressBar(contentWidth))
	b.WriteString("\n\n")

	// Stats boxes
	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")

	// Flush history
	if pane := m.renderFlushes(contentWidth); pane != "" {
		b.WriteString("\n")
		b.WriteString(pane)
	}

	// Exit hint once the write has finished
	if m.done {
		b.WriteString("\n")
		hint := keyStyle.Render("[Enter]") + keyDescStyle.Render(" Exit")
		b.WriteString(center(hint, contentWidth))
		b.WriteString("\n")
	}

	// Build content and calculate padding needed to fill screen
	content := b.String()
	contentLines := strings.Count(content, "\n") + 1

	// Account for outer box border (2 lines: top and bottom)
	availableLines := m.height - 2
	if availableLines > contentLines {
		padding := availableLines - contentLines
		content += strings.Repeat("\n", padding)
	}

	// Wrap in outer box with full height
	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

// renderHeader renders the header section.
func (m WriteModel) renderHeader(width int) string {
	title := titleStyle.Render("  etch")
	hintText := "[Ctrl+C to cancel]"
	if m.done {
		hintText = "[Enter to exit]"
	}
	hint := mutedTextStyle.Render(hintText)

	// Calculate spacing
	spacing := width - lipgloss.Width(title) - lipgloss.Width(hint)
	if spacing < 1 {
		spacing = 1
	}

	return title + strings.Repeat(" ", spacing) + hint
}

// renderDetails renders the image, target, and policy lines.
func (m WriteModel) renderDetails(width int) string {
	var b strings.Builder

	label := mutedTextStyle

	b.WriteString(fmt.Sprintf("  %s %s (%s)\n",
		label.Render("Image: "),
		truncatePath(m.imagePath, width-24),
		m.format))
	b.WriteString(fmt.Sprintf("  %s %s\n",
		label.Render("Target:"),
		truncatePath(m.target, width-16)))
	b.WriteString(fmt.Sprintf("  %s flush every %s or %s (%s)\n",
		label.Render("Policy:"),
		types.FormatSize(m.syncCfg.IntervalBytes),
		m.syncCfg.Interval,
		m.syncCfg.Label()))

	return b.String()
}

// renderStatus renders the current status line.
func (m WriteModel) renderStatus(width int) string {
	if m.done {
		if m.err != nil {
			return errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err))
		}
		line := successTextStyle.Render("  Write complete!")
		if m.digest != "" {
			line += "\n" + mutedTextStyle.Render(fmt.Sprintf("  SHA-256: %s", m.digest))
			if m.verified {
				line += successTextStyle.Render("  (verified)")
			}
		}
		return line
	}

	if m.cancelling {
		return warningTextStyle.Render(fmt.Sprintf("  %s Cancelling after the current block...", m.spinner.View()))
	}

	if m.progress.Verifying {
		return fmt.Sprintf("  %s Verifying written data...", m.spinner.View())
	}

	return fmt.Sprintf("  %s Writing...", m.spinner.View())
}

// renderProgressBar renders the progress bar.
// When the image size is known the bar is determinate; compressed sources
// with no size hint fall back to an animated indeterminate bar.
func (m WriteModel) renderProgressBar(width int) string {
	barWidth := width - 10
	if barWidth < 10 {
		barWidth = 10
	}

	current, total := m.progress.BytesWritten, m.progress.TotalBytes
	if m.progress.Verifying {
		current, total = m.progress.BytesVerified, m.progress.BytesWritten
	}
	if m.done && m.err == nil {
		current, total = 1, 1
	}

	if total > 0 {
		frac := float64(current) / float64(total)
		if frac > 1 {
			frac = 1
		}
		filled := int(frac * float64(barWidth))

		var bar strings.Builder
		bar.WriteString("  ")
		bar.WriteString(progressFillStyle.Render(repeatChar('█', filled)))
		bar.WriteString(progressEmptyStyle.Render(repeatChar('░', barWidth-filled)))
		bar.WriteString(fmt.Sprintf(" %3.0f%%", frac*100))
		return bar.String()
	}

	// Create an indeterminate progress animation
	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*2) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}

	var bar strings.Builder
	bar.WriteString("  ")

	pulseWidth := barWidth / 5
	if pulseWidth < 3 {
		pulseWidth = 3
	}

	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(progressFillStyle.Render("█"))
		} else {
			bar.WriteString(progressEmptyStyle.Render("░"))
		}
	}

	return bar.String()
}

// renderStats renders the statistics boxes.
func (m WriteModel) renderStats(totalWidth int) string {
	// Calculate box width (5 boxes with spacing)
	boxWidth := (totalWidth - 12) / 5
	if boxWidth < 10 {
		boxWidth = 10
	}

	// Format values
	writtenVal := types.FormatSize(m.progress.BytesWritten)
	totalVal := "?"
	if m.progress.TotalBytes > 0 {
		totalVal = types.FormatSize(m.progress.TotalBytes)
	}
	flushVal := humanize.Comma(m.progress.Flushes)

	elapsed := time.Since(m.startTime)
	rateVal := "-"
	if elapsed > 500*time.Millisecond && m.progress.BytesWritten > 0 {
		rate := float64(m.progress.BytesWritten) / elapsed.Seconds()
		rateVal = types.FormatSize(int64(rate)) + "/s"
	}
	elapsedVal := formatDuration(elapsed)

	// Create stats boxes
	writtenBox := m.renderStatBox("Written", writtenVal, boxWidth)
	totalBox := m.renderStatBox("Total", totalVal, boxWidth)
	flushBox := m.renderStatBox("Flushes", flushVal, boxWidth)
	rateBox := m.renderStatBox("Rate", rateVal, boxWidth)
	elapsedBox := m.renderStatBox("Time", elapsedVal, boxWidth)

	// Join horizontally
	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ", writtenBox, " ", totalBox, " ", flushBox, " ", rateBox, " ", elapsedBox)
}

// renderStatBox renders a single stat box.
func (m WriteModel) renderStatBox(label, value string, width int) string {
	labelStr := statsLabelStyle.Render(label)
	valueStr := statsValueStyle.Render(value)

	content := lipgloss.JoinVertical(lipgloss.Center,
		center(labelStr, width-4),
		center(valueStr, width-4))

	return statsBoxStyle.Width(width).Render(content)
}

// renderFlushes renders the recent forced-flush history.
func (m WriteModel) renderFlushes(width int) string {
	if len(m.flushes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(mutedTextStyle.Render("  Recent flushes:"))
	b.WriteString("\n")

	for _, ev := range m.flushes {
		line := fmt.Sprintf("    %s  %s in %s  %s",
			ev.At.Format("15:04:05"),
			padLeft(types.FormatSize(ev.Bytes), 10),
			ev.Duration.Round(time.Millisecond),
			accentTextStyle.Render(ev.Trigger.String()))
		if lipgloss.Width(line) > width {
			line = line[:width]
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// SetProgress updates the progress.
func (m *WriteModel) SetProgress(p writer.Progress) {
	m.progress = p
}

// SetFlushes replaces the displayed flush history.
func (m *WriteModel) SetFlushes(events []writer.FlushEvent) {
	m.flushes = events
}

// SetCancelling marks that a cancel was requested and is in flight.
func (m *WriteModel) SetCancelling() {
	m.cancelling = true
}

// SetDone marks the write as complete.
func (m *WriteModel) SetDone(err error) {
	m.done = true
	m.cancelling = false
	m.err = err
}

// SetResult records the digest and verification outcome for display.
func (m *WriteModel) SetResult(digest string, verified bool) {
	m.digest = digest
	m.verified = verified
}

// IsDone returns true if the write is complete.
func (m WriteModel) IsDone() bool {
	return m.done
}

// Error returns any error from the write.
func (m WriteModel) Error() error {
	return m.err
}
