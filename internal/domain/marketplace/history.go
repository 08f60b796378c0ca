package marketplace

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is one entry in an entity's status log
type StatusChange struct {
	Sequence int       `json:"sequence"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to"`
	Actor    uuid.UUID `json:"actor_id"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// StatusHistory is an append-only, sequence-ordered log. Entries are never
// rewritten; persistence inserts rows keyed by (entity, sequence).
type StatusHistory struct {
	entries []StatusChange
}

// NewStatusHistory rebuilds a history from persisted entries, already ordered by sequence.
func NewStatusHistory(entries []StatusChange) StatusHistory {
	cp := make([]StatusChange, len(entries))
	copy(cp, entries)
	return StatusHistory{entries: cp}
}

// Append records a transition and returns the new entry.
func (h *StatusHistory) Append(from, to string, actor uuid.UUID, reason string, at time.Time) StatusChange {
	entry := StatusChange{
		Sequence: len(h.entries) + 1,
		From:     from,
		To:       to,
		Actor:    actor,
		Reason:   reason,
		At:       at,
	}
	if n := len(h.entries); n > 0 {
		entry.Sequence = h.entries[n-1].Sequence + 1
	}
	h.entries = append(h.entries, entry)
	return entry
}

// Entries returns a copy of the log.
func (h StatusHistory) Entries() []StatusChange {
	cp := make([]StatusChange, len(h.entries))
	copy(cp, h.entries)
	return cp
}

// Len returns the number of entries
func (h StatusHistory) Len() int {
	return len(h.entries)
}

// Last returns the most recent entry.
func (h StatusHistory) Last() (StatusChange, bool) {
	if len(h.entries) == 0 {
		return StatusChange{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Since returns entries with a sequence greater than seq.
func (h StatusHistory) Since(seq int) []StatusChange {
	var result []StatusChange
	for _, e := range h.entries {
		if e.Sequence > seq {
			result = append(result, e)
		}
	}
	return result
}
