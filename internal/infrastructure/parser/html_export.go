package parser

import (
	"bytes"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ContributionScorer/internal/transcript"
)

// title="15.03.2025 14:22:01 UTC+01:00"
var htmlDateExpr = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}:\d{2}`)

// HTMLExportParser reads chat-history exports rendered as HTML (Telegram
// Desktop layout). Each div.message counts as one line.
type HTMLExportParser struct{}

var _ transcript.Parser = (*HTMLExportParser)(nil)

// NewHTMLExportParser builds the HTML parser.
func NewHTMLExportParser() *HTMLExportParser {
	return &HTMLExportParser{}
}

// Name identifies the parser inside the registry.
func (p *HTMLExportParser) Name() string {
	return "html"
}

// Parse loads the document and returns a lazy record sequence over its message blocks.
func (p *HTMLExportParser) Parse(raw []byte, opts transcript.Options) (transcript.Transcript, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("parse document: %w", err)
	}

	blocks := doc.Find("div.message")

	records := func(yield func(transcript.Record) bool) {
		var (
			lastSender string
			lastTime   time.Time
		)
		blocks.EachWithBreak(func(i int, sel *goquery.Selection) bool {
			line := i + 1
			rec, ok := parseMessageBlock(sel, lastSender, lastTime, opts.SystemPrefix)
			if !ok {
				return true
			}
			if !rec.IsSystem {
				lastSender = rec.Sender
			}
			lastTime = rec.Timestamp

			if line < opts.StartLine {
				return true
			}
			if opts.Cutoff > 0 {
				if n, _ := strconv.Atoi(rec.Date); n < opts.Cutoff {
					return true
				}
			}
			rec.Line = line
			return yield(rec)
		})
	}

	return transcript.Transcript{TotalLines: blocks.Length(), Records: iter.Seq[transcript.Record](records)}, nil
}

func parseMessageBlock(sel *goquery.Selection, lastSender string, lastTime time.Time, systemPrefix string) (transcript.Record, bool) {
	if sel.HasClass("service") {
		text := strings.TrimSpace(sel.Find(".body").First().Text())
		if text == "" || lastTime.IsZero() {
			return transcript.Record{}, false
		}
		return transcript.Record{
			Date:      formatDateKey(lastTime),
			Timestamp: lastTime,
			Sender:    systemPrefix,
			Message:   text,
			IsSystem:  true,
		}, true
	}

	title, _ := sel.Find(".date").First().Attr("title")
	match := htmlDateExpr.FindString(title)
	if match == "" {
		return transcript.Record{}, false
	}
	ts, err := time.Parse("02.01.2006 15:04:05", match)
	if err != nil {
		return transcript.Record{}, false
	}

	sender := strings.TrimSpace(sel.Find(".from_name").First().Text())
	if sender == "" {
		sender = lastSender
	}
	if sender == "" {
		return transcript.Record{}, false
	}

	body := sel.Find(".text").First()
	body.Find("br").ReplaceWithHtml("\n")
	text := strings.TrimSpace(body.Text())

	return transcript.Record{
		Date:      formatDateKey(ts),
		Timestamp: ts,
		Sender:    sender,
		Message:   text,
		IsSystem:  systemPrefix != "" && strings.HasPrefix(sender, systemPrefix),
	}, true
}
