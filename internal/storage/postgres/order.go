package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/domain/sales"
	"github.com/xenking/barista-pos/internal/wire"
)

const orderColumns = `o.id, o.user_id, u.name, u.email, o.items, o.total_amount, o.item_count, o.created_at`

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, total_amount, item_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderForOwnerSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1 AND o.user_id = $2`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id
		LIMIT $2 OFFSET $3`

	countOrdersByOwnerSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	listOrdersInRangeSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.created_at >= $1 AND o.created_at < $2
		ORDER BY o.created_at DESC, o.id`

	listOwnerOrdersInRangeSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.created_at >= $1 AND o.created_at < $2 AND o.user_id = $3
		ORDER BY o.created_at DESC, o.id`

	overviewSQL = `SELECT count(*),
			COALESCE(sum(total_amount), 0)::numeric,
			COALESCE(sum(item_count), 0)::bigint
		FROM orders
		WHERE created_at >= $1 AND created_at < $2`

	dailyBreakdownSQL = `SELECT to_char((created_at AT TIME ZONE $3)::date, 'YYYY-MM-DD') AS day,
			count(*),
			sum(total_amount)::numeric,
			sum(item_count)::bigint
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day DESC`

	scanOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.created_at >= $1 AND o.created_at < $2
		ORDER BY o.created_at, o.id`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ sales.Repository = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and sales.Repository backed
// by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create appends an order to the ledger. The order lines are serialized to
// JSON for storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return fmt.Errorf("parsing order id %q: %w", o.ID, err)
	}
	ownerID, err := uuid.Parse(o.Owner.ID)
	if err != nil {
		return fmt.Errorf("parsing owner id %q: %w", o.Owner.ID, err)
	}
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	wire.EncodeLines(e, o.Lines)
	itemsJSON := e.Bytes()

	_, err = r.pool.Exec(ctx, createOrderSQL,
		id, ownerID, itemsJSON, o.TotalAmount, o.ItemCount, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetForOwner returns the order with the given id when it belongs to ownerID.
func (r *OrderRepository) GetForOwner(ctx context.Context, ownerID, id string) (*order.Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, order.ErrNotFound
	}
	uid, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, order.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getOrderForOwnerSQL, oid, uid)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByOwner returns a page of the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]order.Order, error) {
	uid, err := uuid.Parse(ownerID)
	if err != nil {
		return []order.Order{}, nil
	}
	rows, err := r.pool.Query(ctx, listOrdersByOwnerSQL, uid, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// CountByOwner returns how many orders the owner has placed.
func (r *OrderRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	uid, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, nil
	}
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersByOwnerSQL, uid).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

// ListOrders returns orders created in [from, to), newest first, optionally
// restricted to one owner.
func (r *OrderRepository) ListOrders(ctx context.Context, from, to time.Time, ownerID string) ([]order.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ownerID == "" {
		rows, err = r.pool.Query(ctx, listOrdersInRangeSQL, from, to)
	} else {
		uid, perr := uuid.Parse(ownerID)
		if perr != nil {
			return []order.Order{}, nil
		}
		rows, err = r.pool.Query(ctx, listOwnerOrdersInRangeSQL, from, to, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("listing orders in range: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Overview aggregates the orders created in [from, to).
func (r *OrderRepository) Overview(ctx context.Context, from, to time.Time) (sales.Overview, error) {
	var o sales.Overview
	err := r.pool.QueryRow(ctx, overviewSQL, from, to).Scan(&o.TotalOrders, &o.TotalRevenue, &o.TotalItems)
	if err != nil {
		return sales.Overview{}, fmt.Errorf("aggregating orders: %w", err)
	}
	return o, nil
}

// DailyBreakdown groups the orders created in [from, to) by calendar day in
// loc, newest day first.
func (r *OrderRepository) DailyBreakdown(ctx context.Context, from, to time.Time, loc *time.Location) ([]sales.Day, error) {
	rows, err := r.pool.Query(ctx, dailyBreakdownSQL, from, to, loc.String())
	if err != nil {
		return nil, fmt.Errorf("daily breakdown: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sales.Day, error) {
		var d sales.Day
		err := row.Scan(&d.Date, &d.Orders, &d.Revenue, &d.Items)
		return d, err
	})
}

// Scan streams the orders created in [from, to), oldest first, to fn. It
// stops at the first error returned by fn.
func (r *OrderRepository) Scan(ctx context.Context, from, to time.Time, fn func(*order.Order) error) error {
	rows, err := r.pool.Query(ctx, scanOrdersSQL, from, to)
	if err != nil {
		return fmt.Errorf("scanning orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return fmt.Errorf("scanning order row: %w", err)
		}
		if err := fn(&o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scanning orders: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		id, owner uuid.UUID
		itemsJSON []byte
	)
	if err := row.Scan(&id, &owner, &o.Owner.Name, &o.Owner.Email, &itemsJSON,
		&o.TotalAmount, &o.ItemCount, &o.CreatedAt,
	); err != nil {
		return order.Order{}, err
	}
	lines, err := wire.DecodeLines(jx.DecodeBytes(itemsJSON), "items")
	if err != nil {
		return order.Order{}, fmt.Errorf("decoding order items: %w", err)
	}
	o.Lines = lines
	o.ID = id.String()
	o.Owner.ID = owner.String()
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
