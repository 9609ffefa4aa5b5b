package usecase

import (
	"fmt"
	"strings"
	"time"
)

// Summary counts what one slice did.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Evaluated  int
	Filtered   int
	History    int
	Duplicates int
	Scored     int
	Records    int
	Unresolved int
	// Fallbacks counts entries whose oracle verdict was a sentinel.
	Fallbacks int

	FilesDone    int
	FilesSkipped int
	FilesFailed  []string

	BudgetExhausted bool
}

// Idle reports whether the slice found nothing to do.
func (s Summary) Idle() bool {
	return s.Evaluated == 0 && len(s.FilesFailed) == 0
}

// Message renders the summary for a chat notification.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contribution scoring run %s\n", s.RunID)
	fmt.Fprintf(&b, "Evaluated: %d, scored: %d, records: %d (unresolved %d)\n", s.Evaluated, s.Scored, s.Records, s.Unresolved)
	fmt.Fprintf(&b, "Filtered: %d, already retired: %d, duplicates: %d\n", s.Filtered, s.History, s.Duplicates)
	if s.Fallbacks > 0 {
		fmt.Fprintf(&b, "Oracle fallbacks: %d\n", s.Fallbacks)
	}
	if s.FilesDone+s.FilesSkipped+len(s.FilesFailed) > 0 {
		fmt.Fprintf(&b, "Files completed: %d, unchanged: %d\n", s.FilesDone, s.FilesSkipped)
	}
	if len(s.FilesFailed) > 0 {
		fmt.Fprintf(&b, "Files failed: %s\n", strings.Join(s.FilesFailed, ", "))
	}
	if s.BudgetExhausted {
		b.WriteString("Time budget exhausted, continuing next run\n")
	}
	if !s.Finished.IsZero() {
		fmt.Fprintf(&b, "Took %s", s.Finished.Sub(s.Started).Round(time.Millisecond))
	}
	return strings.TrimRight(b.String(), "\n")
}
