package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one directional debt record: Sender owes Recipient Amount.
type Entry struct {
	CreatedAt      time.Time
	DeletedAt      *time.Time
	ID             string
	ConversationID string
	Sender         string
	Recipient      string
	Description    string
	Amount         decimal.Decimal
	Deleted        bool
}

// Involves reports whether user is either side of the entry.
func (e *Entry) Involves(user string) bool {
	return e.Sender == user || e.Recipient == user
}

// Between reports whether the entry links a and b in either direction.
func (e *Entry) Between(a, b string) bool {
	return (e.Sender == a && e.Recipient == b) || (e.Sender == b && e.Recipient == a)
}

// Pair is an unordered pair of identities.
type Pair struct {
	A string
	B string
}

// EntryFilter narrows ListActive. Zero value matches every active entry.
type EntryFilter struct {
	Pair           *Pair
	ConversationID string
	Participant    string
}

// IsZero reports whether the filter matches everything.
func (f EntryFilter) IsZero() bool {
	return f.Pair == nil && f.ConversationID == "" && f.Participant == ""
}

// Matches applies the filter to a single entry. Deleted entries never match.
func (f EntryFilter) Matches(e *Entry) bool {
	if e.Deleted {
		return false
	}
	if f.ConversationID != "" && e.ConversationID != f.ConversationID {
		return false
	}
	if f.Participant != "" && !e.Involves(f.Participant) {
		return false
	}
	if f.Pair != nil && !e.Between(f.Pair.A, f.Pair.B) {
		return false
	}
	return true
}
