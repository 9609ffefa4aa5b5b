package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
	"ContributionScorer/internal/transcript"
)

// StrategySource opens transcript files and parses them with the parser
// registered for their format.
type StrategySource struct {
	registry      *transcript.Registry
	files         ports.TranscriptSource
	defaultFormat string
	logger        *slog.Logger
}

// NewStrategySource wires the parser registry with a file source.
func NewStrategySource(reg *transcript.Registry, files ports.TranscriptSource, defaultFormat string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:      reg,
		files:         files,
		defaultFormat: defaultFormat,
		logger:        log,
	}
}

// List returns the files currently available.
func (s *StrategySource) List(ctx context.Context) ([]domain.TranscriptFile, error) {
	if s.files == nil {
		return nil, nil
	}
	return s.files.List(ctx)
}

// Load reads one file and parses it from opts.StartLine onward.
func (s *StrategySource) Load(ctx context.Context, file domain.TranscriptFile, opts transcript.Options) (transcript.Transcript, error) {
	if s.registry == nil || s.files == nil {
		return transcript.Transcript{}, fmt.Errorf("transcript source is not configured")
	}

	format := file.Format
	if format == "" {
		format = s.defaultFormat
	}
	p, err := s.registry.Resolve(format)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("file %s: %w", file.Name, err)
	}

	rc, err := s.files.Open(ctx, file)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("open %s: %w", file.Name, err)
	}
	raw, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if closeErr != nil {
		return transcript.Transcript{}, fmt.Errorf("close %s: %w", file.Name, closeErr)
	}

	s.debug("load transcript", "file", file.Name, "format", format, "bytes", len(raw), "start_line", opts.StartLine)

	parsed, err := p.Parse(raw, opts)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("parse %s: %w", file.Name, err)
	}
	return parsed, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
