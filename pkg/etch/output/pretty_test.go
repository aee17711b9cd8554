package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &PrettyFormatter{}

	err := f.Format(&buf, sampleReport())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "/home/user/Downloads")
	assert.Contains(t, out, "340 files")
	assert.Contains(t, out, "SIZE")
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "ubuntu-24.04.img")
	assert.Contains(t, out, "6.0 GiB")
	assert.Contains(t, out, "Images:")
	assert.Contains(t, out, "Total:")
}

func TestPrettyFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	f := &PrettyFormatter{}

	err := f.Format(&buf, &Report{Sources: []string{"/tmp"}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "No images found")
}

func TestPrettyFormatterWarnings(t *testing.T) {
	report := sampleReport()
	report.Warnings = []string{"skipped /media/usb: permission denied"}

	var buf bytes.Buffer
	f := &PrettyFormatter{}
	require.NoError(t, f.Format(&buf, report))

	assert.Contains(t, buf.String(), "Warnings:")
	assert.Contains(t, buf.String(), "permission denied")
}

func TestPadding(t *testing.T) {
	assert.Equal(t, "   abc", padLeft("abc", 6))
	assert.Equal(t, "abc", padLeft("abc", 2))
	assert.Equal(t, "abc   ", padRight("abc", 6))
	assert.Equal(t, "abc", padRight("abc", 3))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{150 * time.Millisecond, "150ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Hour, "2h 0m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
