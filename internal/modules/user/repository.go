package user

import "context"

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role   Role
	Search string
	Page   int
	Limit  int
}

// Repository defines user account storage.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, f ListFilter) ([]*User, int, error)
}
