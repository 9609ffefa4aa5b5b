// Package filter rejects log entries that must never reach dedup or the oracle.
package filter

import (
	"strconv"
	"strings"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/events"
)

// Reason names the rule that rejected an entry. The zero value means accepted.
type Reason string

const (
	Accepted      Reason = ""
	EmptyText     Reason = "empty text"
	SystemMessage Reason = "system message"
	ReservedEvent Reason = "reserved event"
	MalformedDate Reason = "malformed status date"
	BeforeCutoff  Reason = "before cutoff"
)

// Filter applies the ordered, short-circuiting entry rules.
type Filter struct {
	cutoff int
}

// New builds a filter; cutoff is a YYYYMMDD integer, 0 disables the date window.
func New(cutoff int) *Filter {
	return &Filter{cutoff: cutoff}
}

// Check returns the first rule e violates, or Accepted.
func (f *Filter) Check(e domain.LogEntry, ev events.Event) Reason {
	if strings.TrimSpace(e.Text) == "" {
		return EmptyText
	}
	if e.IsSystemMessage {
		return SystemMessage
	}
	if ev.Kind == events.KindReserved {
		return ReservedEvent
	}
	date, ok := DateKey(e.StatusDate)
	if !ok {
		return MalformedDate
	}
	if f.cutoff > 0 && date < f.cutoff {
		return BeforeCutoff
	}
	return Accepted
}

// DateKey parses an 8-digit YYYYMMDD string into an integer date key.
func DateKey(s string) (int, bool) {
	if len(s) != 8 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
