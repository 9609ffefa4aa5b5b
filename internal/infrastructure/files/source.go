package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

// DirectorySource lists uploaded transcripts from a local directory.
type DirectorySource struct {
	dir     string
	pattern string
}

var _ ports.TranscriptSource = (*DirectorySource)(nil)

// NewDirectorySource matches files in dir against a glob pattern.
func NewDirectorySource(dir, pattern string) *DirectorySource {
	if pattern == "" {
		pattern = "*"
	}
	return &DirectorySource{dir: dir, pattern: pattern}
}

// List returns matching files sorted by name. A missing directory yields no files.
func (d *DirectorySource) List(ctx context.Context) ([]domain.TranscriptFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(d.dir); os.IsNotExist(err) {
		return nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(d.dir, d.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob transcripts: %w", err)
	}
	sort.Strings(matches)

	out := make([]domain.TranscriptFile, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, domain.TranscriptFile{
			Name:     filepath.Base(path),
			Location: path,
			Format:   formatFor(path),
		})
	}
	return out, nil
}

// Open opens the file at its recorded location.
func (d *DirectorySource) Open(_ context.Context, file domain.TranscriptFile) (io.ReadCloser, error) {
	location := file.Location
	if location == "" {
		location = filepath.Join(d.dir, file.Name)
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return f, nil
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "text"
	default:
		return ""
	}
}
