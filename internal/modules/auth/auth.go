package auth

import (
	"context"
	"errors"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
)

// Service defines the authentication surface: self-service registration and
// credential exchange for a signed token.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*user.User, string, error)
	Login(ctx context.Context, email, password string) (*user.User, string, error)
	ParseToken(token string) (*Identity, error)
}

// RegisterRequest is the self-service signup payload. The role is always
// forced to customer; staff accounts are created through the user module.
type RegisterRequest struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Phone    string       `json:"phone"`
	Address  user.Address `json:"address"`
}

// Identity is the authenticated caller, carried in the request context.
type Identity struct {
	UserID uuid.UUID
	Role   user.Role
	Email  string
}

// Claims is the JWT payload.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.StandardClaims
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type ctxKey struct{}

// FromContext returns the identity stored by the Authenticate middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// WithIdentity returns ctx carrying id. Exposed for handler tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}
