package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orderdesk/orderdesk-backend/internal/postgres"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const userColumns = `id,name,email,password_hash,role,phone,
	street,city,state,zip_code,country,is_active,created_at,updated_at`

func (r *postgresRepo) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := postgres.Q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (id,name,email,password_hash,role,phone,
		  street,city,state,zip_code,country,is_active,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Phone,
		u.Address.Street, u.Address.City, u.Address.State, u.Address.ZipCode, u.Address.Country,
		u.IsActive, u.CreatedAt, u.UpdatedAt)
	if postgres.IsDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.scan(postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scan(postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *postgresRepo) Update(ctx context.Context, u *User) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx, `
		UPDATE users SET name=$1, email=$2, role=$3, phone=$4,
		  street=$5, city=$6, state=$7, zip_code=$8, country=$9, updated_at=NOW()
		WHERE id=$10`,
		u.Name, u.Email, u.Role, u.Phone,
		u.Address.Street, u.Address.City, u.Address.State, u.Address.ZipCode, u.Address.Country,
		u.ID)
	if postgres.IsDuplicateKey(err) {
		return ErrEmailExists
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := postgres.Q(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]*User, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.Role != "" {
		args = append(args, f.Role)
		where += fmt.Sprintf(` AND role=$%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := postgres.Q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageArgs(f.Page, f.Limit)
	args = append(args, limit, offset)
	rows, err := postgres.Q(ctx, r.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone,
			&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.ZipCode, &u.Address.Country,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *postgresRepo) scan(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone,
		&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.ZipCode, &u.Address.Country,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func pageArgs(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
