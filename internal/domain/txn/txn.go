// Package txn defines the unit-of-work contract used by domain services.
package txn

import "context"

// Runner executes fn atomically. Repositories called with the context passed
// to fn take part in the same transaction. A nested WithinTx call joins the
// enclosing transaction instead of starting a new one. If fn returns an error
// every change made inside it is discarded.
type Runner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
