package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepo is the Postgres EventLog. The bigserial id doubles as the
// insertion-order tiebreak for events sharing a created_at.
type EventRepo struct{ DB *pgxpool.Pool }

func NewEventRepo(db *pgxpool.Pool) *EventRepo { return &EventRepo{DB: db} }

func (r *EventRepo) Append(ctx context.Context, e *Event) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO order_events(event_id, order_id, type, actor_user_id, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.ID, e.OrderID, e.Type, e.ActorUserID, e.OldValue, e.NewValue, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("append order event: %w", err)
	}
	return nil
}

func (r *EventRepo) List(ctx context.Context, orderID string) ([]Event, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, event_id, order_id, type, actor_user_id, old_value, new_value, created_at
		FROM order_events WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.ID, &e.OrderID, &e.Type, &e.ActorUserID, &e.OldValue, &e.NewValue, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
