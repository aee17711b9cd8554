package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Images []yamlImage `yaml:"images"`
	Stats  yamlStats   `yaml:"stats"`
	Meta   yamlMeta    `yaml:"meta"`
}

// yamlImage represents an image in YAML output.
type yamlImage struct {
	Path        string    `yaml:"path"`
	Name        string    `yaml:"name,omitempty"`
	Dir         string    `yaml:"dir,omitempty"`
	Size        int64     `yaml:"size"`
	SizeHuman   string    `yaml:"size_human"`
	Compression string    `yaml:"compression,omitempty"`
	ModTime     time.Time `yaml:"mod_time,omitempty"`
	Age         string    `yaml:"age,omitempty"`
}

// yamlStats represents scan statistics in YAML output.
type yamlStats struct {
	DirsScanned  int64  `yaml:"dirs_scanned"`
	FilesScanned int64  `yaml:"files_scanned"`
	Duration     string `yaml:"duration"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	Sources     []string `yaml:"sources"`
	TotalImages int      `yaml:"total_images"`
	TotalSize   int64    `yaml:"total_size"`
	Warnings    []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	output := f.buildOutput(r)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts a Report to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Report) yamlOutput {
	images := make([]yamlImage, len(r.Images))
	for i, img := range r.Images {
		images[i] = yamlImage{
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

	stats := yamlStats{
		DirsScanned:  r.Stats.DirsScanned,
		FilesScanned: r.Stats.FilesScanned,
		Duration:     formatDurationString(r.Stats.Duration),
	}

	meta := yamlMeta{
		Sources:     r.Sources,
		TotalImages: r.TotalImages,
		TotalSize:   r.TotalSize(),
		Warnings:    r.Warnings,
	}

	return yamlOutput{
		Images: images,
		Stats:  stats,
		Meta:   meta,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
