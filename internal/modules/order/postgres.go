package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/postgres"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id,order_id,customer_id,status,payment_status,total_amount,
	street,city,state,zip_code,country,notes,created_by,created_at,updated_at`

func (r *postgresRepo) Create(ctx context.Context, o *Order) error {
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	q := postgres.Q(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO orders (id,order_id,customer_id,status,payment_status,total_amount,
		  street,city,state,zip_code,country,notes,created_by,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.OrderID, o.CustomerID, o.Status, o.PaymentStatus, o.TotalAmount,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country,
		o.Notes, o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	if postgres.IsDuplicateKey(err) {
		return ErrDuplicateOrderID
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, quantity, price_at_time)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, item.ProductID, item.Quantity, item.PriceAtTime)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, orderID))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// The guard failed; disambiguate missing from concurrently moved.
	var current Status
	err = postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id=$1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, current)
}

func (r *postgresRepo) UpdatePayment(ctx context.Context, id uuid.UUID, paid bool) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET payment_status=$1, updated_at=NOW() WHERE id=$2`, paid, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]*Order, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.CustomerID != uuid.Nil {
		args = append(args, f.CustomerID)
		where += fmt.Sprintf(` AND customer_id=$%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if f.PaymentStatus != nil {
		args = append(args, *f.PaymentStatus)
		where += fmt.Sprintf(` AND payment_status=$%d`, len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	var total int
	if err := postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	rows, err := postgres.Q(ctx, r.db).QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o := &Order{}
		if err := rows.Scan(&o.ID, &o.OrderID, &o.CustomerID, &o.Status, &o.PaymentStatus, &o.TotalAmount,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, o := range orders {
		if o.Items, err = r.listItems(ctx, o.ID); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

func (r *postgresRepo) Stats(ctx context.Context) (*Stats, error) {
	rows, err := postgres.Q(ctx, r.db).QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount),0)
		FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Stats{}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.TotalAmount); err != nil {
			return nil, err
		}
		st.ByStatus = append(st.ByStatus, sc)
		st.TotalOrders += sc.Count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Day boundary in UTC, matching the UTC timestamps written on insert.
	err = postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders
		 WHERE created_at >= date_trunc('day', NOW() AT TIME ZONE 'utc')`).
		Scan(&st.TodayOrders)
	return st, err
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := postgres.Q(ctx, r.db).QueryContext(ctx, `
		SELECT product_id, quantity, price_at_time
		FROM order_items WHERE order_id=$1 ORDER BY position ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.PriceAtTime); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row *sql.Row) (*Order, error) {
	o := &Order{}
	err := row.Scan(&o.ID, &o.OrderID, &o.CustomerID, &o.Status, &o.PaymentStatus, &o.TotalAmount,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
