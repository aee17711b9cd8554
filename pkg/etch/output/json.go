package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Images []jsonImage `json:"images"`
	Stats  jsonStats   `json:"stats"`
	Meta   jsonMeta    `json:"meta"`
}

// jsonImage represents an image in JSON output.
type jsonImage struct {
	Path        string    `json:"path"`
	Name        string    `json:"name,omitempty"`
	Dir         string    `json:"dir,omitempty"`
	Size        int64     `json:"size"`
	SizeHuman   string    `json:"size_human"`
	Compression string    `json:"compression,omitempty"`
	ModTime     time.Time `json:"mod_time,omitempty"`
	Age         string    `json:"age,omitempty"`
}

// jsonStats represents scan statistics in JSON output.
type jsonStats struct {
	DirsScanned  int64  `json:"dirs_scanned"`
	FilesScanned int64  `json:"files_scanned"`
	Duration     string `json:"duration"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	Sources     []string `json:"sources"`
	TotalImages int      `json:"total_images"`
	TotalSize   int64    `json:"total_size"`
	Warnings    []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with images, stats, and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	output := f.buildOutput(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildOutput converts a Report to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Report) jsonOutput {
	images := make([]jsonImage, len(r.Images))
	for i, img := range r.Images {
		images[i] = buildJSONImage(img)
	}

	stats := jsonStats{
		DirsScanned:  r.Stats.DirsScanned,
		FilesScanned: r.Stats.FilesScanned,
		Duration:     formatDurationString(r.Stats.Duration),
	}

	meta := jsonMeta{
		Sources:     r.Sources,
		TotalImages: r.TotalImages,
		TotalSize:   r.TotalSize(),
		Warnings:    r.Warnings,
	}

	return jsonOutput{
		Images: images,
		Stats:  stats,
		Meta:   meta,
	}
}

func buildJSONImage(img Image) jsonImage {
	return jsonImage{
		Path:        img.Path,
		Name:        img.Name,
		Dir:         img.Dir,
		Size:        img.Size,
		SizeHuman:   img.SizeHuman,
		Compression: img.Compression,
		ModTime:     img.ModTime,
		Age:         formatDurationString(img.Age),
	}
}

// formatDurationString formats a duration as a string for JSON output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per
// line). Each image is written as a compact JSON object on its own line.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, img := range r.Images {
		data, err := json.Marshal(buildJSONImage(img))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
