package transcript

import (
	"fmt"
	"iter"
	"time"
)

// Record is one parsed transcript message.
type Record struct {
	// Line is the 1-based position of the record in its file.
	Line      int
	Date      string // YYYYMMDD
	Timestamp time.Time
	Sender    string
	Message   string
	IsSystem  bool
}

// Options control where parsing starts and what is dropped.
type Options struct {
	// StartLine is the first line to yield (1-based); lower values mean 1.
	StartLine int
	// Cutoff drops records dated before it (YYYYMMDD integer); 0 keeps all.
	Cutoff int
	// SystemPrefix flags senders that denote system-generated lines.
	SystemPrefix string
}

// Transcript is a parsed file. Records is lazy and may be ranged over again.
type Transcript struct {
	TotalLines int
	Records    iter.Seq[Record]
}

// From yields the records at or after line start.
func (t Transcript) From(start int) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		if t.Records == nil {
			return
		}
		for rec := range t.Records {
			if rec.Line < start {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Parser turns one flavor of raw export into records.
type Parser interface {
	Name() string
	Parse(raw []byte, opts Options) (Transcript, error)
}

// Registry keeps a mapping from format names to their parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(p Parser) {
	if r.parsers == nil {
		r.parsers = map[string]Parser{}
	}
	r.parsers[p.Name()] = p
}

// Resolve returns a parser by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Parser, error) {
	if p, ok := r.parsers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("transcript format %s is not registered", name)
}
