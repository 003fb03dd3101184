package storage

import "context"

// TxManager scopes a function to one atomic unit of work. Everything the
// function does through the repositories either commits together or is
// rolled back together.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
