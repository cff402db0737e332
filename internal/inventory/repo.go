package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres Store. Stock rows are locked per SKU with
// SELECT ... FOR UPDATE inside one transaction, so a reservation either
// commits for every item or rolls back whole.
type Repo struct{ DB *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{DB: db} }

func (r *Repo) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, sku, name, stock, price_cents, created_at, updated_at
		FROM inventory_items ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SKU, &it.Name, &it.Stock, &it.PriceCents, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) GetItem(ctx context.Context, sku string) (*Item, error) {
	var it Item
	err := r.DB.QueryRow(ctx, `
		SELECT id, sku, name, stock, price_cents, created_at, updated_at
		FROM inventory_items WHERE sku = $1`, sku,
	).Scan(&it.ID, &it.SKU, &it.Name, &it.Stock, &it.PriceCents, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select item: %w", err)
	}
	return &it, nil
}

func (r *Repo) CreateItem(ctx context.Context, it *Item) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO inventory_items(sku, name, stock, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, created_at, updated_at`,
		it.SKU, it.Name, it.Stock, it.PriceCents,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSKUExists
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *Repo) UpdateItem(ctx context.Context, sku string, patch ItemPatch) (*Item, error) {
	it, err := r.GetItem(ctx, sku)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Stock != nil {
		it.Stock = *patch.Stock
	}
	if patch.PriceCents != nil {
		it.PriceCents = *patch.PriceCents
	}
	err = r.DB.QueryRow(ctx, `
		UPDATE inventory_items SET name=$2, stock=$3, price_cents=$4, updated_at=now()
		WHERE sku=$1 RETURNING updated_at`,
		sku, it.Name, it.Stock, it.PriceCents,
	).Scan(&it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return it, nil
}

func (r *Repo) DeleteItem(ctx context.Context, sku string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM inventory_items WHERE sku=$1`, sku)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// alreadyReserved short-circuits a retried reservation for the same order.
func (r *Repo) alreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE order_id = $1 AND status = $2`, orderID, reservationReserved).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == itemCount, nil
}

func (r *Repo) ReserveAll(ctx context.Context, orderID string, items []ReserveItem) (bool, []Shortage, error) {
	if ok, err := r.alreadyReserved(ctx, orderID, len(items)); err != nil {
		return false, nil, err
	} else if ok {
		return true, nil, nil
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var shortages []Shortage
	for _, it := range items {
		var stock int
		err := tx.QueryRow(ctx, `SELECT stock FROM inventory_items WHERE sku=$1 FOR UPDATE`, it.SKU).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			shortages = append(shortages, Shortage{SKU: it.SKU, Required: it.Qty, Available: 0})
			continue
		}
		if err != nil {
			return false, nil, err
		}
		if stock < it.Qty {
			shortages = append(shortages, Shortage{SKU: it.SKU, Required: it.Qty, Available: stock})
			continue
		}

		if _, err := tx.Exec(ctx, `UPDATE inventory_items SET stock = stock - $2, updated_at = now() WHERE sku=$1`, it.SKU, it.Qty); err != nil {
			return false, nil, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, sku, qty, status, created_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (order_id, sku) DO UPDATE SET qty = EXCLUDED.qty, status = EXCLUDED.status
		`, orderID, it.SKU, it.Qty, reservationReserved); err != nil {
			return false, nil, err
		}
	}

	if len(shortages) > 0 {
		// Rollback via defer: nothing changed.
		return false, shortages, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

func (r *Repo) ReleaseAll(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT sku, qty FROM reservations
		WHERE order_id=$1 AND status=$2 FOR UPDATE`, orderID, reservationReserved)
	if err != nil {
		return err
	}
	type rec struct {
		sku string
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.sku, &x.qty); err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx, `UPDATE inventory_items SET stock = stock + $2, updated_at = now() WHERE sku=$1`, x.sku, x.qty); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE reservations SET status=$2 WHERE order_id=$1 AND status=$3`,
		orderID, reservationReleased, reservationReserved); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Migrate creates the inventory schema if it does not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists inventory_items(
			id bigserial primary key,
			sku text not null unique,
			name text not null,
			stock int not null,
			price_cents bigint not null,
			created_at timestamptz not null,
			updated_at timestamptz not null
		)`,
		`create table if not exists reservations(
			id bigserial primary key,
			order_id text not null,
			sku text not null,
			qty int not null,
			status text not null,
			created_at timestamptz not null,
			unique(order_id, sku)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
