package memory

import "testing"

// realisticMeminfo mirrors the layout of /proc/meminfo on a 16 GB host.
const realisticMeminfo = `MemTotal:       16337168 kB
MemFree:         8231424 kB
MemAvailable:   12582912 kB
Buffers:          524288 kB
Cached:          3145728 kB
SwapCached:            0 kB
Active:          4194304 kB
Inactive:        2097152 kB
SwapTotal:       2097148 kB
SwapFree:        2097148 kB
Dirty:               128 kB
Writeback:             0 kB
`

func TestParseMeminfoTotalMB(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
	}{
		{
			name: "realistic meminfo",
			text: realisticMeminfo,
			want: 15954, // 16337168 / 1024 truncated
		},
		{
			name: "exact megabytes",
			text: "MemTotal:        4194304 kB\n",
			want: 4096,
		},
		{
			name: "truncates toward zero",
			text: "MemTotal:        4194305 kB\n",
			want: 4096,
		},
		{
			name: "missing record",
			text: "MemFree:         1024 kB\nBuffers: 512 kB\n",
			want: 0,
		},
		{
			name: "malformed value",
			text: "MemTotal:        lots kB\n",
			want: 0,
		},
		{
			name: "record without value",
			text: "MemTotal:\n",
			want: 0,
		},
		{
			name: "empty text",
			text: "",
			want: 0,
		},
		{
			name: "tabs and extra whitespace",
			text: "MemTotal:\t\t 2097152   kB\n",
			want: 2048,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMeminfoTotalMB(tt.text)
			if got != tt.want {
				t.Errorf("parseMeminfoTotalMB() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseMeminfoAvailableMB(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
	}{
		{
			name: "prefers MemAvailable",
			text: realisticMeminfo,
			want: 12288, // 12582912 / 1024
		},
		{
			name: "falls back to free plus buffers plus cached",
			text: "MemTotal: 8388608 kB\nMemFree: 1048576 kB\nBuffers: 524288 kB\nCached: 524288 kB\n",
			want: 2048,
		},
		{
			name: "partial fallback fields",
			text: "MemFree: 1048576 kB\n",
			want: 1024,
		},
		{
			name: "SwapCached does not satisfy Cached",
			text: "SwapCached: 1048576 kB\n",
			want: 0,
		},
		{
			name: "only MemTotal present",
			text: "MemTotal: 8388608 kB\n",
			want: 0,
		},
		{
			name: "empty text",
			text: "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMeminfoAvailableMB(tt.text)
			if got != tt.want {
				t.Errorf("parseMeminfoAvailableMB() = %d, want %d", got, tt.want)
			}
		})
	}
}
