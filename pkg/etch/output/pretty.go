package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatTable(r))

	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with scan metadata.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	var lines []string

	sourcesLabel := LabelStyle.Render("Sources:")
	sourcesValue := ValueStyle.Render(strings.Join(r.Sources, ", "))
	lines = append(lines, fmt.Sprintf("%s %s", sourcesLabel, sourcesValue))

	scannedLabel := LabelStyle.Render("Scanned:")
	scannedValue := ValueStyle.Render(fmt.Sprintf("%d files in %s",
		r.Stats.FilesScanned, formatDuration(r.Stats.Duration)))
	lines = append(lines, fmt.Sprintf("%s %s", scannedLabel, scannedValue))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable builds the image table with SIZE, FORMAT, AGE and PATH columns.
func (f *PrettyFormatter) formatTable(r *Report) string {
	if len(r.Images) == 0 {
		return MutedStyle.Render("  No images found matching criteria\n")
	}

	var sb strings.Builder

	sizeHeader := TableHeaderStyle.Render("SIZE")
	fmtHeader := TableHeaderStyle.Render("FORMAT")
	ageHeader := TableHeaderStyle.Render("AGE")
	pathHeader := TableHeaderStyle.Render("PATH")
	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", sizeHeader, fmtHeader, ageHeader, pathHeader))

	// Calculate column widths for alignment.
	sizeWidth, fmtWidth, ageWidth := 8, 6, 3
	for _, img := range r.Images {
		if len(img.SizeHuman) > sizeWidth {
			sizeWidth = len(img.SizeHuman)
		}
		if len(formatName(img.Compression)) > fmtWidth {
			fmtWidth = len(formatName(img.Compression))
		}
		if len(shortAge(img)) > ageWidth {
			ageWidth = len(shortAge(img))
		}
	}

	for _, img := range r.Images {
		sizeStr := SizeStyle.Render(padLeft(img.SizeHuman, sizeWidth))
		fmtStr := FormatStyle.Render(padRight(formatName(img.Compression), fmtWidth))
		ageStr := MutedStyle.Render(padRight(shortAge(img), ageWidth))
		pathStr := PathStyle.Render(img.Path)
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", sizeStr, fmtStr, ageStr, pathStr))
	}

	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	var parts []string

	countLabel := LabelStyle.Render("Images:")
	countValue := ValueStyle.Render(fmt.Sprintf("%d", r.TotalImages))
	parts = append(parts, fmt.Sprintf("%s %s", countLabel, countValue))

	totalLabel := LabelStyle.Render("Total:")
	totalValue := SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize())))
	parts = append(parts, fmt.Sprintf("%s %s", totalLabel, totalValue))

	hint := MutedStyle.Render("Use -o plain for unformatted output")
	parts = append(parts, hint)

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// shortAge renders how long ago the image was modified.
func shortAge(img Image) string {
	if img.ModTime.IsZero() {
		return ""
	}
	return humanize.Time(img.ModTime)
}

// padLeft pads a string with spaces on the left to the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d interface{ Seconds() float64 }) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
