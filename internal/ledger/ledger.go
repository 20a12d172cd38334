// Package ledger describes the account store the airdrop protocol runs on.
//
// Every record and every wallet is an account addressed by a string key. An
// account holds a balance in the smallest currency unit and an opaque data
// blob. All mutation happens inside RunInTx: the callback either returns nil
// and every staged change commits together, or it returns an error and nothing
// is written.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has no account.
	ErrNotFound = errors.New("ledger: account not found")
	// ErrExists is returned by Create when the key is already occupied.
	ErrExists = errors.New("ledger: account already exists")
	// ErrInsufficientFunds is returned by Transfer when the source balance is too low.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrConflict is returned when a concurrent commit touched the same accounts.
	// The transaction had no effect and may be resubmitted by the caller.
	ErrConflict = errors.New("ledger: concurrent update conflict")
	// ErrOverflow is returned when a credit would overflow a balance.
	ErrOverflow = errors.New("ledger: balance overflow")
)

// Account is a snapshot of a ledger entry.
type Account struct {
	Key      string
	Lamports uint64
	Data     []byte
}

// Tx is the view of the ledger inside a transaction. Reads observe the
// transaction's own staged writes.
type Tx interface {
	// Get returns the account at key or ErrNotFound.
	Get(ctx context.Context, key string) (Account, error)
	// Create stores data at key. It fails with ErrExists when key is occupied,
	// whether by a committed account or by one created earlier in the same tx.
	Create(ctx context.Context, key string, data []byte) error
	// Update replaces the data of an existing account.
	Update(ctx context.Context, key string, data []byte) error
	// Transfer moves amount from one account balance to another. The
	// destination is created as a balance-only account when absent.
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// Ledger is implemented by the memory, Postgres and Redis backends.
type Ledger interface {
	RunInTx(ctx context.Context, fn func(Tx) error) error
	// Get reads a committed account outside any transaction.
	Get(ctx context.Context, key string) (Account, error)
	// Credit mints amount into key. It exists for development faucets and
	// test fixtures; the protocol never calls it.
	Credit(ctx context.Context, key string, amount uint64) error
}

// Balance returns the balance at key, treating a missing account as empty.
func Balance(ctx context.Context, tx Tx, key string) (uint64, error) {
	acct, err := tx.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Lamports, nil
}
