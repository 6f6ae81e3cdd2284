package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"engrave-queue/internal/domain"
)

// ChangesChannel is notified inside every mutating transaction.
const ChangesChannel = "orders_changed"

type OrderRepositoryInterface interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, o domain.Order, changedBy string) error
	UpdateStatus(ctx context.Context, id string, status domain.Status, completedAt *time.Time, changedBy string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Order, error)
	Timeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusLogEntry, error)
	Subscribe(ctx context.Context, fn func([]domain.Order)) error
}

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepositoryInterface {
	return &OrderRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id             TEXT PRIMARY KEY,
    customer_name  TEXT NOT NULL,
    email          TEXT NOT NULL,
    category       TEXT NOT NULL,
    item           TEXT NOT NULL,
    quantity       INTEGER NOT NULL CHECK (quantity >= 1),
    cost_per_item  DOUBLE PRECISION NOT NULL CHECK (cost_per_item >= 0),
    time_per_item  INTEGER NOT NULL CHECK (time_per_item >= 0),
    engraving_text TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL CHECK (status IN ('pending','processing','completed','cancelled')),
    submitted_at   TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_submitted_idx ON orders (submitted_at, id);
CREATE INDEX IF NOT EXISTS orders_email_idx ON orders (email);

CREATE TABLE IF NOT EXISTS order_status_log (
    id         BIGSERIAL PRIMARY KEY,
    order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    status     TEXT NOT NULL,
    changed_by TEXT NOT NULL,
    changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func (or *OrderRepository) EnsureSchema(ctx context.Context) error {
	if _, err := or.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure orders schema: %w", err)
	}
	return nil
}

func (or *OrderRepository) Create(ctx context.Context, o domain.Order, changedBy string) error {
	return or.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders
			    (id, customer_name, email, category, item, quantity, cost_per_item, time_per_item,
			     engraving_text, status, submitted_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			o.ID, o.CustomerName, o.Email, o.Category, o.ItemName, o.Quantity, o.CostPerItem,
			o.TimePerItem, o.EngravingText, string(o.Status), o.SubmittedAt, o.CompletedAt,
		); err != nil {
			return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
		}
		return logStatus(ctx, tx, o.ID, o.Status, changedBy)
	})
}

func (or *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, completedAt *time.Time, changedBy string) error {
	return or.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET status = $2, completed_at = $3, updated_at = now()
			WHERE id = $1`, id, string(status), completedAt)
		if err != nil {
			return fmt.Errorf("failed to update order %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return logStatus(ctx, tx, id, status, changedBy)
	})
}

func (or *OrderRepository) Delete(ctx context.Context, id string) error {
	return or.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete order %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil
	})
}

func (or *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := or.db.Query(ctx, `
		SELECT id, customer_name, email, category, item, quantity, cost_per_item, time_per_item,
		       engraving_text, status, submitted_at, completed_at
		FROM orders
		ORDER BY submitted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var (
			o      domain.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.Email, &o.Category, &o.ItemName, &o.Quantity,
			&o.CostPerItem, &o.TimePerItem, &o.EngravingText, &status, &o.SubmittedAt, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = domain.Status(status)
		o.SubmittedAt = o.SubmittedAt.UTC()
		if o.CompletedAt != nil {
			t := o.CompletedAt.UTC()
			o.CompletedAt = &t
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (or *OrderRepository) Timeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusLogEntry, error) {
	rows, err := or.db.Query(ctx, `
		SELECT status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id
		LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StatusLogEntry, 0)
	for rows.Next() {
		var (
			e      domain.StatusLogEntry
			status string
		)
		if err := rows.Scan(&status, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline: %w", err)
		}
		e.Status = domain.Status(status)
		e.ChangedAt = e.ChangedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Subscribe delivers the full order list once, then again after every change
// notification, until ctx is done or the listening connection fails.
func (or *OrderRepository) Subscribe(ctx context.Context, fn func([]domain.Order)) error {
	conn, err := or.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangesChannel, err)
	}

	for {
		orders, err := or.List(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(orders)

		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for %s: %w", ChangesChannel, err)
		}
	}
}

func (or *OrderRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, '')`, ChangesChannel); err != nil {
		return fmt.Errorf("failed to notify %s: %w", ChangesChannel, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func logStatus(ctx context.Context, tx pgx.Tx, id string, status domain.Status, changedBy string) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, now())`, id, string(status), changedBy); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}
