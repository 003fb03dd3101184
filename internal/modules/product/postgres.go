package product

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

const productColumns = `id,sku,name,description,price,stock,reserved_stock,category,is_active,created_at,updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := postgres.Q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO products (id,sku,name,description,price,stock,reserved_stock,category,is_active,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.Stock, p.ReservedStock,
		p.Category, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if postgres.IsDuplicateKey(err) {
		return ErrSKUExists
	}
	return err
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx, `
		UPDATE products SET sku=$1, name=$2, description=$3, price=$4, category=$5, updated_at=NOW()
		WHERE id=$6`,
		p.SKU, p.Name, p.Description, p.Price, p.Category, p.ID)
	if postgres.IsDuplicateKey(err) {
		return ErrSKUExists
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return scanProduct(postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	return scanProduct(postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku=$1`, sku))
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]*Product, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.ActiveOnly {
		where += ` AND is_active`
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category=$%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d OR sku ILIKE $%d)`, n, n, n)
	}
	if f.InStock {
		where += ` AND stock > reserved_stock`
	}

	var total int
	if err := postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
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
		`SELECT `+productColumns+` FROM products `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		p := &Product{}
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.ReservedStock, &p.Category, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *postgresRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := postgres.Q(ctx, r.db).QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE is_active ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Reserve holds qty units with a single guarded update; the condition makes
// concurrent reservations on the same product serialize correctly without
// an explicit row lock.
func (r *postgresRepo) Reserve(ctx context.Context, id uuid.UUID, qty int) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx, `
		UPDATE products
		SET reserved_stock = reserved_stock + $2, updated_at = NOW()
		WHERE id = $1 AND is_active AND stock - reserved_stock >= $2`,
		id, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// The guard failed; disambiguate why.
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return ErrProductInactive
	}
	return &InsufficientStockError{
		ProductID: id.String(),
		Name:      p.Name,
		Requested: qty,
		Available: p.Available(),
	}
}

func (r *postgresRepo) Release(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	var released int
	err := postgres.Q(ctx, r.db).QueryRowContext(ctx, `
		WITH prev AS (
			SELECT reserved_stock FROM products WHERE id = $1 FOR UPDATE
		)
		UPDATE products p
		SET reserved_stock = GREATEST(p.reserved_stock - $2, 0), updated_at = NOW()
		FROM prev
		WHERE p.id = $1
		RETURNING LEAST($2, prev.reserved_stock)`,
		id, qty).Scan(&released)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return released, nil
}

func (r *postgresRepo) AdjustStock(ctx context.Context, id uuid.UUID, op StockOperation, qty int) (*Product, error) {
	var row *sql.Row
	switch op {
	case OpAdd:
		row = postgres.Q(ctx, r.db).QueryRowContext(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = NOW()
			WHERE id = $1 RETURNING `+productColumns, id, qty)
	case OpSubtract:
		row = postgres.Q(ctx, r.db).QueryRowContext(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2 RETURNING `+productColumns, id, qty)
	case OpSet:
		row = postgres.Q(ctx, r.db).QueryRowContext(ctx, `
			UPDATE products SET stock = $2, updated_at = NOW()
			WHERE id = $1 RETURNING `+productColumns, id, qty)
	default:
		return nil, fmt.Errorf("invalid stock operation %q", op)
	}

	p, err := scanProduct(row)
	if errors.Is(err, ErrProductNotFound) && op == OpSubtract {
		// Either missing or the subtraction would go negative.
		existing, gerr := r.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, &InsufficientStockError{
			ProductID: id.String(),
			Name:      existing.Name,
			Requested: qty,
			Available: existing.Stock,
		}
	}
	return p, err
}

func (r *postgresRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx,
		`UPDATE products SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepo) LogTransaction(ctx context.Context, t *Transaction) error {
	t.CreatedAt = time.Now().UTC()
	_, err := postgres.Q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO inventory_transactions (id,product_id,order_id,type,quantity,reason,performed_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.ProductID, nullableUUID(t.OrderID), t.Type, t.Quantity, t.Reason,
		nullableUUID(t.PerformedBy), t.CreatedAt)
	return err
}

func (r *postgresRepo) ListTransactions(ctx context.Context, productID uuid.UUID) ([]*Transaction, error) {
	rows, err := postgres.Q(ctx, r.db).QueryContext(ctx, `
		SELECT id,product_id,order_id,type,quantity,reason,performed_by,created_at
		FROM inventory_transactions WHERE product_id=$1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t := &Transaction{}
		var orderID, performedBy sql.NullString
		if err := rows.Scan(&t.ID, &t.ProductID, &orderID, &t.Type, &t.Quantity,
			&t.Reason, &performedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.OrderID = parseNullUUID(orderID)
		t.PerformedBy = parseNullUUID(performedBy)
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanProduct(row *sql.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.ReservedStock, &p.Category, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func parseNullUUID(s sql.NullString) *uuid.UUID {
	if !s.Valid {
		return nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil
	}
	return &id
}
