// Package events sorts a message into one of a closed set of event kinds
// before any other component looks at its text.
package events

import (
	"errors"
	"strings"
)

// Kind is the variant tag of an Event.
type Kind int

const (
	// KindMessage is free text to be classified by the oracle.
	KindMessage Kind = iota
	// KindReserved belongs to another subsystem and is never scored here.
	KindReserved
	// KindContribution carries a well-formed contribution block.
	KindContribution
)

func (k Kind) String() string {
	switch k {
	case KindReserved:
		return "reserved"
	case KindContribution:
		return "contribution"
	default:
		return "message"
	}
}

// Event is the parsed form of a message.
type Event struct {
	Kind Kind
	// Marker is the reserved marker that matched, for KindReserved.
	Marker string
	// Contribution is set for KindContribution.
	Contribution Contribution
	// BlockErr is set when a contribution tag was present but the block was
	// malformed; the event then degrades to KindMessage.
	BlockErr error
}

// Classifier recognizes reserved markers and contribution blocks.
type Classifier struct {
	reserved []string
}

// NewClassifier builds a classifier over the given reserved markers.
func NewClassifier(reserved []string) *Classifier {
	markers := make([]string, 0, len(reserved))
	for _, m := range reserved {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	return &Classifier{reserved: markers}
}

// Classify returns the event variant for text. Reserved markers win over a
// contribution block in the same message.
func (c *Classifier) Classify(text string) Event {
	for _, m := range c.reserved {
		if strings.Contains(text, m) {
			return Event{Kind: KindReserved, Marker: m}
		}
	}

	contribution, err := ParseContribution(text)
	switch {
	case err == nil:
		return Event{Kind: KindContribution, Contribution: contribution}
	case errors.Is(err, ErrNoContributionBlock):
		return Event{Kind: KindMessage}
	default:
		return Event{Kind: KindMessage, BlockErr: err}
	}
}
