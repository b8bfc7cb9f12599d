// Package ids hands out identifiers: opaque surrogate ids for store entities
// and token ids (Generator), and sortable ULIDs for request, audit and event
// ids (New, NewAt).
package ids

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID stamped with the current time. Store entities never use
// it; their ids come from a Generator.
func New() string { return NewAt(time.Now()) }

// NewAt stamps the id with t, so an event id orders the same way as the
// event's own timestamp.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
