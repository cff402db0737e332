package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres Store. Update and Delete take the order row with
// SELECT ... FOR UPDATE and hold it across the closure, so the inventory
// effect the orchestrator performs inside runs under the row lock and
// concurrent writers of the same order id queue behind it.
type Repo struct{ DB *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{DB: db} }

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, total_cents, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, now(), now(), 1)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.TotalCents, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, sku, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4)`,
			o.ID, it.SKU, it.Qty, it.UnitPriceCents,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	o.Version = 1
	return tx.Commit(ctx)
}

func loadItems(ctx context.Context, q querier, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT sku, qty, unit_price_cents FROM order_items
		WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.SKU, &it.Qty, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	o := &Order{ID: id}
	err := r.DB.QueryRow(ctx, `
		SELECT user_id, total_cents, status, created_at, updated_at, version
		FROM orders WHERE id = $1`, id,
	).Scan(&o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	if o.Items, err = loadItems(ctx, r.DB, id); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return o, nil
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, total_cents, status, created_at, updated_at, version
		FROM orders ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.Version); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = loadItems(ctx, r.DB, out[i].ID); err != nil {
			return nil, fmt.Errorf("select order items: %w", err)
		}
	}
	return out, nil
}

func (r *Repo) lockOrder(ctx context.Context, tx pgx.Tx, id string) (*Order, error) {
	o := &Order{ID: id}
	err := tx.QueryRow(ctx, `
		SELECT user_id, total_cents, status, created_at, updated_at, version
		FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if o.Items, err = loadItems(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return o, nil
}

func (r *Repo) Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := r.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}

	o.Version++
	if err := tx.QueryRow(ctx, `
		UPDATE orders SET user_id=$2, total_cents=$3, status=$4, updated_at=now(), version=$5
		WHERE id=$1 RETURNING updated_at`,
		o.ID, o.UserID, o.TotalCents, o.Status, o.Version,
	).Scan(&o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return nil, fmt.Errorf("replace order items: %w", err)
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, sku, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4)`,
			o.ID, it.SKU, it.Qty, it.UnitPriceCents,
		); err != nil {
			return nil, fmt.Errorf("replace order items: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) Delete(ctx context.Context, id string, fn func(o *Order) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := r.lockOrder(ctx, tx, id)
	if err != nil {
		return err
	}
	if fn != nil {
		if err := fn(o); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) Analytics(ctx context.Context) (*Analytics, error) {
	a := &Analytics{StatusBreakdown: make(map[Status]int)}

	if err := r.DB.QueryRow(ctx, `
		SELECT count(*), coalesce(sum(total_cents), 0) FROM orders`,
	).Scan(&a.TotalOrders, &a.TotalRevenueCents); err != nil {
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}

	rows, err := r.DB.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		a.StatusBreakdown[s] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, err := r.List(ctx, 0, 5)
	if err != nil {
		return nil, err
	}
	a.RecentOrders = recent
	return a, nil
}
