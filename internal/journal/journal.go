package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 200
)

// Event values stored in the journal.
const (
	EventArrived = "arrived"
	EventLeft    = "left"
)

// Entry is one recorded hotplug event.
type Entry struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	VendorID   uint16    `json:"vendor_id"`
	ProductID  uint16    `json:"product_id"`
	Class      uint8     `json:"class"`
	BusNumber  uint8     `json:"bus"`
	Address    uint8     `json:"address"`
	Port       uint8     `json:"port"`
	Speed      string    `json:"speed"`
	SessionID  string    `json:"session_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store persists hotplug events in the hotplug_events table.
type Store struct {
	db *sql.DB
}

// NewStore creates a journal store on an open SQLite connection.
// The schema is created by the embedded migrations, not by the store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts a new journal entry for a device event and returns it.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - event: EventArrived or EventLeft
//   - desc: Device identity and bus position
//   - sessionID: Attachment session the event belongs to
//
// Returns:
//   - Entry: The persisted entry, including its generated ID and timestamp
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Record(ctx context.Context, event string, desc usb.Descriptor, sessionID string) (Entry, error) {
	if event != EventArrived && event != EventLeft {
		return Entry{}, fmt.Errorf("unknown event %q", event)
	}
	if sessionID == "" {
		return Entry{}, fmt.Errorf("session id is required")
	}

	entry := Entry{
		ID:         uuid.NewString(),
		Event:      event,
		VendorID:   desc.VendorID,
		ProductID:  desc.ProductID,
		Class:      desc.Class,
		BusNumber:  desc.BusNumber,
		Address:    desc.Address,
		Port:       desc.Port,
		Speed:      desc.Speed.String(),
		SessionID:  sessionID,
		RecordedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hotplug_events
		 (id, event, vendor_id, product_id, class, bus_number, address, port, speed, session_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Event,
		entry.VendorID,
		entry.ProductID,
		entry.Class,
		entry.BusNumber,
		entry.Address,
		entry.Port,
		entry.Speed,
		entry.SessionID,
		entry.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("inserting journal entry: %w", err)
	}

	return entry, nil
}

// Recent returns the most recent journal entries, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by recorded_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event, vendor_id, product_id, class, bus_number, address, port, speed, session_id, recorded_at
		 FROM hotplug_events
		 ORDER BY recorded_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, limit)
}

// BySession returns the entries for one attachment session, newest first.
// An attached device has one arrival entry; once it departs the session
// gains its departure entry.
func (s *Store) BySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event, vendor_id, product_id, class, bus_number, address, port, speed, session_id, recorded_at
		 FROM hotplug_events
		 WHERE session_id = ?
		 ORDER BY recorded_at DESC
		 LIMIT ?`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal by session: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, limit)
}

// Prune deletes entries older than the given retention window.
//
// Returns the number of rows deleted.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM hotplug_events WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func scanEntries(rows *sql.Rows, limit int) ([]Entry, error) {
	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var recordedAt string

		if err := rows.Scan(
			&e.ID,
			&e.Event,
			&e.VendorID,
			&e.ProductID,
			&e.Class,
			&e.BusNumber,
			&e.Address,
			&e.Port,
			&e.Speed,
			&e.SessionID,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		timestamp, err := parseTimestamp(recordedAt)
		if err != nil {
			return nil, err
		}
		e.RecordedAt = timestamp

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return entries, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("recorded_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return timestamp, nil
}
