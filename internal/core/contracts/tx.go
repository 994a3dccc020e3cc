package contracts

import "context"

// TxManager runs fn inside a database transaction; the bound transaction
// travels in the context and repositories pick it up from there.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
