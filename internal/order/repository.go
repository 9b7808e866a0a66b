package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, customer_name, amount, file_url, created_at, updated_at`

// PostgresRepository handles order persistence in PostgreSQL. The pool must
// have shopspring/decimal registered for NUMERIC (see db.Connect).
type PostgresRepository struct {
	db *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a PostgresRepository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts a new order (ID zero) or replaces every mutable column of an
// existing one in a single statement.
func (r *PostgresRepository) Save(ctx context.Context, o Order) (Order, error) {
	if o.ID == 0 {
		row := r.db.QueryRow(ctx,
			`INSERT INTO orders (customer_name, amount, file_url)
			 VALUES ($1, $2, $3)
			 RETURNING `+orderColumns,
			o.CustomerName, o.Amount, o.FileURL,
		)
		saved, err := scanOrder(row)
		if err != nil {
			return Order{}, fmt.Errorf("insert order: %w", err)
		}
		return saved, nil
	}

	row := r.db.QueryRow(ctx,
		`UPDATE orders
		 SET customer_name = $2, amount = $3, file_url = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		o.ID, o.CustomerName, o.Amount, o.FileURL,
	)
	saved, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("update order %d: %w", o.ID, err)
	}
	return saved, nil
}

// FindByID fetches an order by its id.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// FindAll returns all orders ordered by id.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// ExistsByID returns true if an order with id exists.
func (r *PostgresRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return exists, nil
}

// DeleteByID removes the order row with id.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerName, &o.Amount, &o.FileURL, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
