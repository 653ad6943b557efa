// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tables whose row changes are announced.
const (
	TableLocations = "locations"
	TableCheckins  = "office_checkins"
)

// Row operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is published after a committed write to one of the
// presence tables.  Consumers treat it as an invalidation signal and
// re-read the affected range; the payload is informational.
type ChangeEvent struct {
	Table      string    `json:"table"`
	Op         string    `json:"op"`
	UserID     uint64    `json:"user_id"`
	Date       string    `json:"date"`
	RecordID   uint64    `json:"record_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	// Origin is the id of the instance that published the event.
	Origin     string    `json:"origin,omitempty"`
}

// DecodeChangeEvent parses a message body and rejects events that do
// not name a known table and operation.
func DecodeChangeEvent(body []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	switch ev.Table {
	case TableLocations, TableCheckins:
	default:
		return ChangeEvent{}, fmt.Errorf("unknown table %q", ev.Table)
	}
	switch ev.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return ChangeEvent{}, fmt.Errorf("unknown op %q", ev.Op)
	}
	return ev, nil
}
