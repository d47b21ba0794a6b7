package store

import (
	"fmt"
	"time"
)

// TimeoutKind identifies which side of a swap a timeout guards.
type TimeoutKind string

const (
	TimeoutSrc TimeoutKind = "SRC"
	TimeoutDst TimeoutKind = "DST"
)

// TimeoutEvent is a durable row backing one armed deadline. The
// deadline scheduler keeps an in-memory heap mirroring the unexecuted
// rows and uses Executed to make firing idempotent across restarts.
type TimeoutEvent struct {
	ID        int64
	OrderHash string
	Kind      TimeoutKind
	FireAt    time.Time
	Executed  bool
	CreatedAt time.Time
}

// ArmTimeout persists a new timeout row. Arming is idempotent per
// (order_hash, kind): re-arming replaces the fire time of the existing
// unexecuted row rather than inserting a duplicate.
func (s *Store) ArmTimeout(orderHash string, kind TimeoutKind, fireAt time.Time) (*TimeoutEvent, error) {
	var ev TimeoutEvent
	err := s.db.QueryRow(`
		INSERT INTO timeout_events (order_hash, kind, fire_at, executed, created_at)
		VALUES ($1, $2, $3, false, $4)
		ON CONFLICT (order_hash, kind) WHERE NOT executed
		DO UPDATE SET fire_at = EXCLUDED.fire_at
		RETURNING id, order_hash, kind, fire_at, executed, created_at`,
		orderHash, kind, fireAt, time.Now().UTC(),
	).Scan(&ev.ID, &ev.OrderHash, &ev.Kind, &ev.FireAt, &ev.Executed, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("arm timeout: %w", err)
	}
	return &ev, nil
}

// CancelTimeout marks any unexecuted timeout for (orderHash, kind) as
// executed without running its handler, used when the guarded leg
// completes before the deadline.
func (s *Store) CancelTimeout(orderHash string, kind TimeoutKind) error {
	_, err := s.db.Exec(
		`UPDATE timeout_events SET executed = true WHERE order_hash = $1 AND kind = $2 AND NOT executed`,
		orderHash, kind,
	)
	if err != nil {
		return fmt.Errorf("cancel timeout: %w", err)
	}
	return nil
}

// MarkTimeoutExecuted flags a timeout row as fired, so a crash between
// firing and the next poll cannot cause a duplicate cancel.
func (s *Store) MarkTimeoutExecuted(id int64) error {
	_, err := s.db.Exec(`UPDATE timeout_events SET executed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark timeout executed: %w", err)
	}
	return nil
}

// ListUnexecutedTimeouts loads every armed-but-not-fired timeout,
// ordered by fire time, for rebuilding the scheduler's heap on start.
func (s *Store) ListUnexecutedTimeouts() ([]*TimeoutEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, order_hash, kind, fire_at, executed, created_at
		FROM timeout_events WHERE NOT executed ORDER BY fire_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list unexecuted timeouts: %w", err)
	}
	defer rows.Close()

	var out []*TimeoutEvent
	for rows.Next() {
		var ev TimeoutEvent
		if err := rows.Scan(&ev.ID, &ev.OrderHash, &ev.Kind, &ev.FireAt, &ev.Executed, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeout event: %w", err)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}
