// Package audit keeps an append-only history of appointment lifecycle events.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/frontdesk/internal/appointments"
)

// Event is one stored history record.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	EntryID    uuid.UUID       `json:"entry_id"`
	EventType  string          `json:"event_type"`
	FromStatus string          `json:"from_status,omitempty"`
	ToStatus   string          `json:"to_status,omitempty"`
	Actor      string          `json:"actor"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Filter narrows a history query. Empty Types means every type.
type Filter struct {
	EntryID uuid.UUID
	Types   []string
	Limit   int
}

// Store writes and reads appointment_audit_events.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates an audit store. The connection must use a driver that accepts
// pq.Array parameters (lib/pq).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ appointments.EventRecorder = (*Store)(nil)

// RecordEvent appends a lifecycle event.
func (s *Store) RecordEvent(ctx context.Context, ev appointments.LifecycleEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	details := []byte("{}")
	if len(ev.Details) > 0 {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("audit: encode details: %w", err)
		}
		details = b
	}

	query := `
		INSERT INTO appointment_audit_events (
			id, entry_id, event_type, from_status, to_status, actor, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		ev.EntryID,
		ev.Type,
		string(ev.FromStatus),
		string(ev.ToStatus),
		ev.Actor,
		details,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// List returns the history of one appointment, oldest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, entry_id, event_type, from_status, to_status, actor, details, created_at
		FROM appointment_audit_events
		WHERE entry_id = $1
	`
	args := []any{filter.EntryID}
	if len(filter.Types) > 0 {
		query += " AND event_type = ANY($2)"
		args = append(args, pq.Array(filter.Types))
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var details []byte
		if err := rows.Scan(&e.ID, &e.EntryID, &e.EventType, &e.FromStatus, &e.ToStatus, &e.Actor, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}
