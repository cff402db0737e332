package orders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the orders schema if it does not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists orders(
			id text primary key,
			user_id int not null,
			total_cents bigint not null,
			status text not null,
			created_at timestamptz not null,
			updated_at timestamptz not null,
			version bigint not null
		)`,
		`create table if not exists order_items(
			id bigserial primary key,
			order_id text not null references orders(id) on delete cascade,
			sku text not null,
			qty int not null,
			unit_price_cents bigint not null
		)`,
		`create table if not exists order_events(
			id bigserial primary key,
			event_id text not null,
			order_id text not null,
			type text not null,
			actor_user_id int not null,
			old_value jsonb null,
			new_value jsonb null,
			created_at timestamptz not null
		)`,
		`create index if not exists order_events_order_id on order_events(order_id, created_at, id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
