// Package dedup computes content fingerprints for log entries and answers
// whether an entry was already scored.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

// Key fingerprints (sender, text, statusDate). Surrounding whitespace on sender
// and text does not change the key.
func Key(sender, text, statusDate string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sender) + strings.TrimSpace(text) + statusDate))
	return hex.EncodeToString(sum[:])
}

// EntryKey is Key applied to a LogEntry.
func EntryKey(e domain.LogEntry) string {
	return Key(e.SenderHandle, e.Text, e.StatusDate)
}

// Index answers membership against the historical ledger and the pipeline's
// own output. It remembers keys seen during the current run.
type Index struct {
	hashes  ports.HashLookup
	history map[historyKey]struct{}
	seen    map[string]struct{}
}

type historyKey struct {
	contributor string
	text        string
}

// NewIndex builds an index over the given historical rows.
func NewIndex(hashes ports.HashLookup, history []domain.HistoryEntry) *Index {
	idx := &Index{
		hashes:  hashes,
		history: make(map[historyKey]struct{}, len(history)),
		seen:    map[string]struct{}{},
	}
	for _, h := range history {
		idx.history[historyKey{normalize(h.Contributor), normalize(h.Text)}] = struct{}{}
	}
	return idx
}

// InHistory reports whether text was already retired in the historical ledger
// under any of the given contributor names. Dates are not part of the match.
func (i *Index) InHistory(text string, contributors ...string) bool {
	t := normalize(text)
	if t == "" {
		return false
	}
	for _, c := range contributors {
		if c == "" {
			continue
		}
		if _, ok := i.history[historyKey{normalize(c), t}]; ok {
			return true
		}
	}
	return false
}

// Seen reports whether key was already scored or stamped, in this run or before.
func (i *Index) Seen(ctx context.Context, key string) (bool, error) {
	if _, ok := i.seen[key]; ok {
		return true, nil
	}
	if i.hashes == nil {
		return false, nil
	}
	found, err := i.hashes.HashSeen(ctx, key)
	if err != nil {
		return false, fmt.Errorf("lookup hash: %w", err)
	}
	return found, nil
}

// Mark records key as processed for the rest of the run.
func (i *Index) Mark(key string) {
	i.seen[key] = struct{}{}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
