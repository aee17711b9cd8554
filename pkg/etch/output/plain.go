package output

import (
	"bytes"
	"text/tabwriter"
)

// PlainFormatter formats output as a simple space-aligned table.
// It produces plain text output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("SIZE\tFORMAT\tPATH\n")); err != nil {
		return err
	}

	for _, img := range r.Images {
		row := img.SizeHuman + "\t" + formatName(img.Compression) + "\t" + img.Path + "\n"
		if _, err := tw.Write([]byte(row)); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// formatName renders the compression column, "raw" for plain images.
func formatName(compression string) string {
	if compression == "" {
		return "raw"
	}
	return compression
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
