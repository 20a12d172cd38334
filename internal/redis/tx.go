package redis

import (
	"bytes"
	"context"
	"errors"
	"math"

	"geodrop/internal/ledger"
)

type op byte

const (
	opRead   op = 0
	opCreate op = 'c'
	opWrite  op = 'w'
)

// entry is the transaction's view of one account: the version it was read at
// and the staged state that will be written on commit.
type entry struct {
	exists   bool
	version  string
	lamports uint64
	data     []byte
	op       op
}

func (e *entry) account(key string) ledger.Account {
	return ledger.Account{Key: key, Lamports: e.lamports, Data: bytes.Clone(e.data)}
}

func (e *entry) touch() {
	if e.op == opRead {
		e.op = opWrite
	}
}

type redisTx struct {
	client  *Client
	entries map[string]*entry
	order   []string
}

func (t *redisTx) load(ctx context.Context, key string) (*entry, error) {
	if e, ok := t.entries[key]; ok {
		return e, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := t.client.load(ctx, key)
	if err != nil {
		return nil, err
	}
	t.entries[key] = e
	t.order = append(t.order, key)
	return e, nil
}

func (t *redisTx) dirty() bool {
	for _, e := range t.entries {
		if e.op != opRead {
			return true
		}
	}
	return false
}

func (t *redisTx) Get(ctx context.Context, key string) (ledger.Account, error) {
	e, err := t.load(ctx, key)
	if err != nil {
		return ledger.Account{}, err
	}
	if !e.exists {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return e.account(key), nil
}

func (t *redisTx) Create(ctx context.Context, key string, data []byte) error {
	e, err := t.load(ctx, key)
	if err != nil {
		return err
	}
	if e.exists {
		return ledger.ErrExists
	}
	e.exists = true
	e.lamports = 0
	e.data = bytes.Clone(data)
	e.op = opCreate
	return nil
}

func (t *redisTx) Update(ctx context.Context, key string, data []byte) error {
	e, err := t.load(ctx, key)
	if err != nil {
		return err
	}
	if !e.exists {
		return ledger.ErrNotFound
	}
	e.data = bytes.Clone(data)
	e.touch()
	return nil
}

func (t *redisTx) Transfer(ctx context.Context, from, to string, amount uint64) error {
	src, err := t.load(ctx, from)
	if err != nil {
		return err
	}
	if !src.exists || src.lamports < amount {
		return ledger.ErrInsufficientFunds
	}
	if from == to || amount == 0 {
		return nil
	}
	dst, err := t.load(ctx, to)
	if err != nil {
		return err
	}
	if dst.lamports > math.MaxUint64-amount {
		return ledger.ErrOverflow
	}
	src.lamports -= amount
	src.touch()
	dst.lamports += amount
	dst.exists = true
	dst.touch()
	return nil
}

func isConflict(err error) bool {
	return errors.Is(err, ledger.ErrConflict)
}
