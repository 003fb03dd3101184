package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the admin-facing account management surface.
type Service interface {
	ListUsers(ctx context.Context, f ListFilter) ([]*User, int, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error)
	ToggleActive(ctx context.Context, id string) (*User, error)
}

// CreateUserRequest holds data for creating an account, typically a staff one.
type CreateUserRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     Role    `json:"role"`
	Phone    string  `json:"phone"`
	Address  Address `json:"address"`
}

// UpdateUserRequest holds updatable account fields. Passwords never change
// through this path.
type UpdateUserRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Role    Role    `json:"role"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) ListUsers(ctx context.Context, f ListFilter) ([]*User, int, error) {
	return s.repo.List(ctx, f)
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, fmt.Errorf("name and email are required")
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}
	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Role != "" {
		if !req.Role.Valid() {
			return nil, fmt.Errorf("invalid role %q", req.Role)
		}
		u.Role = req.Role
	}
	if req.Phone != "" {
		u.Phone = req.Phone
	}
	if req.Address != (Address{}) {
		u.Address = req.Address
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ToggleActive(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = !u.IsActive
	if err := s.repo.SetActive(ctx, id, u.IsActive); err != nil {
		return nil, err
	}
	return u, nil
}
