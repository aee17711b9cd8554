package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleReport returns a report with two images for formatter tests.
func sampleReport() *Report {
	return &Report{
		Images: []Image{
			{
				Path:      "/home/user/Downloads/ubuntu-24.04.img",
				Name:      "ubuntu-24.04.img",
				Dir:       "/home/user/Downloads",
				Size:      6442450944,
				SizeHuman: "6.0 GiB",
				ModTime:   time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
				Age:       5 * 24 * time.Hour,
			},
			{
				Path:        "/home/user/Downloads/raspios.img.gz",
				Name:        "raspios.img.gz",
				Dir:         "/home/user/Downloads",
				Size:        1288490189,
				SizeHuman:   "1.2 GiB",
				Compression: "gzip",
				ModTime:     time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
				Age:         24 * time.Hour,
			},
		},
		Stats: ScanStats{
			DirsScanned:  12,
			FilesScanned: 340,
			Duration:     150 * time.Millisecond,
		},
		Sources:     []string{"/home/user/Downloads"},
		TotalImages: 2,
	}
}

func TestReport_TotalSize(t *testing.T) {
	tests := []struct {
		name     string
		images   []Image
		expected int64
	}{
		{
			name:     "empty",
			images:   []Image{},
			expected: 0,
		},
		{
			name: "single image",
			images: []Image{
				{Path: "/a.img", Size: 1000},
			},
			expected: 1000,
		},
		{
			name: "multiple images",
			images: []Image{
				{Path: "/a.img", Size: 1073741824},
				{Path: "/b.img", Size: 2147483648},
			},
			expected: 3221225472,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Report{Images: tt.images}
			assert.Equal(t, tt.expected, r.TotalSize())
		})
	}
}

// mockFormatter is a simple formatter for testing the registry.
type mockFormatter struct{}

func (m *mockFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString("mock output")
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	reg.Register("mock", func() Formatter { return &mockFormatter{} })

	formatter, err := reg.Get("mock")
	require.NoError(t, err)
	assert.NotNil(t, formatter)

	var buf bytes.Buffer
	err = formatter.Format(&buf, &Report{})
	require.NoError(t, err)
	assert.Equal(t, "mock output", buf.String())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestRegistry_Available_Sorted(t *testing.T) {
	reg := NewRegistry()

	factory := func() Formatter { return &mockFormatter{} }
	reg.Register("zeta", factory)
	reg.Register("alpha", factory)
	reg.Register("beta", factory)

	assert.Equal(t, []string{"alpha", "beta", "zeta"}, reg.Available())
}

func TestDefaultRegistryFormats(t *testing.T) {
	// The built-in formatters register themselves at init.
	for _, name := range []string{"pretty", "plain", "json", "jsonl", "yaml", "tsv", "csv", "markdown"} {
		formatter, err := Get(name)
		require.NoError(t, err, "formatter %s", name)
		assert.NotNil(t, formatter)
	}

	assert.Contains(t, Available(), "pretty")
}
