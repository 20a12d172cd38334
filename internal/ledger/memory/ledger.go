// Package memory is an in-process ledger. Transactions run one at a time under
// a single critical section and stage their writes until the callback returns.
package memory

import (
	"bytes"
	"context"
	"math"
	"sync"

	"geodrop/internal/ledger"
)

// Ledger keeps accounts in a map.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]ledger.Account
}

var _ ledger.Ledger = (*Ledger)(nil)

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[string]ledger.Account)}
}

// RunInTx executes fn and commits its staged writes only when fn returns nil.
func (l *Ledger) RunInTx(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t := &tx{base: l.accounts, staged: make(map[string]ledger.Account)}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for key, acct := range t.staged {
		l.accounts[key] = acct
	}
	return nil
}

// Get reads a committed account.
func (l *Ledger) Get(ctx context.Context, key string) (ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Account{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[key]
	if !ok {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return clone(acct), nil
}

// Credit mints amount into key.
func (l *Ledger) Credit(ctx context.Context, key string, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[key]
	if acct.Lamports > math.MaxUint64-amount {
		return ledger.ErrOverflow
	}
	acct.Key = key
	acct.Lamports += amount
	l.accounts[key] = acct
	return nil
}

// Snapshot returns a deep copy of every committed account.
func (l *Ledger) Snapshot() map[string]ledger.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]ledger.Account, len(l.accounts))
	for k, v := range l.accounts {
		out[k] = clone(v)
	}
	return out
}

type tx struct {
	base   map[string]ledger.Account
	staged map[string]ledger.Account
}

func (t *tx) lookup(key string) (ledger.Account, bool) {
	if acct, ok := t.staged[key]; ok {
		return acct, true
	}
	acct, ok := t.base[key]
	return acct, ok
}

func (t *tx) Get(ctx context.Context, key string) (ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Account{}, err
	}
	acct, ok := t.lookup(key)
	if !ok {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return clone(acct), nil
}

func (t *tx) Create(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.lookup(key); ok {
		return ledger.ErrExists
	}
	t.staged[key] = ledger.Account{Key: key, Data: bytes.Clone(data)}
	return nil
}

func (t *tx) Update(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	acct, ok := t.lookup(key)
	if !ok {
		return ledger.ErrNotFound
	}
	acct.Data = bytes.Clone(data)
	t.staged[key] = acct
	return nil
}

func (t *tx) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, ok := t.lookup(from)
	if !ok || src.Lamports < amount {
		return ledger.ErrInsufficientFunds
	}
	if from == to || amount == 0 {
		return nil
	}
	dst, ok := t.lookup(to)
	if !ok {
		dst = ledger.Account{Key: to}
	}
	if dst.Lamports > math.MaxUint64-amount {
		return ledger.ErrOverflow
	}
	src.Lamports -= amount
	dst.Lamports += amount
	t.staged[from] = src
	t.staged[to] = dst
	return nil
}

func clone(acct ledger.Account) ledger.Account {
	acct.Data = bytes.Clone(acct.Data)
	return acct
}
