package parser

import (
	"bytes"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ContributionScorer/internal/transcript"
)

// [3/14/25, 9:05:33 PM] Alice: message
var textLineExpr = regexp.MustCompile(`^\[(\d{1,2})/(\d{1,2})/(\d{2}|\d{4}), (\d{1,2}):(\d{2})(?::(\d{2}))? ?([AaPp][Mm])\] ([^:]+?): (.*)$`)

var invisibleReplacer = strings.NewReplacer("\u200e", "", "\u200f", "", "\ufeff", "", "\u202f", " ", "\u00a0", " ")

// TextExportParser reads plain-text chat exports, one message per matching line.
type TextExportParser struct{}

var _ transcript.Parser = (*TextExportParser)(nil)

// NewTextExportParser builds the plain-text parser.
func NewTextExportParser() *TextExportParser {
	return &TextExportParser{}
}

// Name identifies the parser inside the registry.
func (p *TextExportParser) Name() string {
	return "text"
}

// Parse counts lines and returns a lazy record sequence starting at opts.StartLine.
// Lines that do not match the grammar are skipped without error.
func (p *TextExportParser) Parse(raw []byte, opts transcript.Options) (transcript.Transcript, error) {
	total := countLines(raw)

	records := func(yield func(transcript.Record) bool) {
		rest := raw
		line := 0
		for len(rest) > 0 {
			var current []byte
			if i := bytes.IndexByte(rest, '\n'); i >= 0 {
				current, rest = rest[:i], rest[i+1:]
			} else {
				current, rest = rest, nil
			}
			line++
			if line < opts.StartLine {
				continue
			}
			rec, ok := parseTextLine(string(bytes.TrimRight(current, "\r")), opts.SystemPrefix)
			if !ok {
				continue
			}
			if opts.Cutoff > 0 {
				if n, _ := strconv.Atoi(rec.Date); n < opts.Cutoff {
					continue
				}
			}
			rec.Line = line
			if !yield(rec) {
				return
			}
		}
	}

	return transcript.Transcript{TotalLines: total, Records: iter.Seq[transcript.Record](records)}, nil
}

func parseTextLine(raw, systemPrefix string) (transcript.Record, bool) {
	line := strings.TrimSpace(invisibleReplacer.Replace(raw))
	m := textLineExpr.FindStringSubmatch(line)
	if m == nil {
		return transcript.Record{}, false
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second := 0
	if m[6] != "" {
		second, _ = strconv.Atoi(m[6])
	}
	if hour < 1 || hour > 12 || minute > 59 || second > 59 {
		return transcript.Record{}, false
	}
	pm := strings.EqualFold(m[7], "pm")
	if hour == 12 {
		hour = 0
	}
	if pm {
		hour += 12
	}

	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day {
		return transcript.Record{}, false
	}

	sender := strings.TrimSpace(m[8])
	return transcript.Record{
		Date:      formatDateKey(ts),
		Timestamp: ts,
		Sender:    sender,
		Message:   strings.TrimSpace(m[9]),
		IsSystem:  systemPrefix != "" && strings.HasPrefix(sender, systemPrefix),
	}, true
}

func countLines(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}
	n := bytes.Count(raw, []byte{'\n'})
	if raw[len(raw)-1] != '\n' {
		n++
	}
	return n
}

func formatDateKey(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02d", t.Year(), t.Month(), t.Day())
}
