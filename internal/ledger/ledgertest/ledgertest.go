// Package ledgertest holds behaviour checks shared by every ledger backend.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodrop/internal/ledger"
)

// Factory returns an empty ledger for one subtest.
type Factory func(t *testing.T) ledger.Ledger

// Run exercises the Ledger contract against backends built by newLedger.
func Run(t *testing.T, newLedger Factory) {
	t.Run("CreateIfAbsent", func(t *testing.T) { testCreateIfAbsent(t, newLedger(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newLedger(t)) })
	t.Run("FailedTxRollsBack", func(t *testing.T) { testRollback(t, newLedger(t)) })
	t.Run("Transfer", func(t *testing.T) { testTransfer(t, newLedger(t)) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, newLedger(t)) })
	t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, newLedger(t)) })
}

func testCreateIfAbsent(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Create(ctx, "rec", []byte("first"))
	}))

	err := l.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Create(ctx, "rec", []byte("second"))
	})
	assert.ErrorIs(t, err, ledger.ErrExists)

	acct, err := l.Get(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), acct.Data)
	assert.Zero(t, acct.Lamports)
}

func testUpdateMissing(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	err := l.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Update(ctx, "ghost", []byte{1})
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = l.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testRollback(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Credit(ctx, "alice", 100))

	boom := errors.New("boom")
	err := l.RunInTx(ctx, func(tx ledger.Tx) error {
		if err := tx.Create(ctx, "rec", []byte{1}); err != nil {
			return err
		}
		if err := tx.Transfer(ctx, "alice", "bob", 60); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = l.Get(ctx, "rec")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = l.Get(ctx, "bob")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	alice, err := l.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), alice.Lamports)
}

func testTransfer(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Credit(ctx, "alice", 100))

	require.NoError(t, l.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, "alice", "bob", 40)
	}))

	err := l.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, "alice", "bob", 61)
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	err = l.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, "nobody", "bob", 1)
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	alice, err := l.Get(ctx, "alice")
	require.NoError(t, err)
	bob, err := l.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), alice.Lamports)
	assert.Equal(t, uint64(40), bob.Lamports)
}

func testReadYourWrites(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Credit(ctx, "alice", 10))

	require.NoError(t, l.RunInTx(ctx, func(tx ledger.Tx) error {
		if err := tx.Create(ctx, "rec", []byte{1}); err != nil {
			return err
		}
		if err := tx.Update(ctx, "rec", []byte{2}); err != nil {
			return err
		}
		if err := tx.Transfer(ctx, "alice", "rec", 10); err != nil {
			return err
		}
		acct, err := tx.Get(ctx, "rec")
		if err != nil {
			return err
		}
		assert.Equal(t, []byte{2}, acct.Data)
		bal, err := ledger.Balance(ctx, tx, "alice")
		if err != nil {
			return err
		}
		assert.Zero(t, bal)
		return nil
	}))

	acct, err := l.Get(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, acct.Data)
	assert.Equal(t, uint64(10), acct.Lamports)
}

func testConcurrentCreate(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.RunInTx(ctx, func(tx ledger.Tx) error {
				return tx.Create(ctx, "receipt", []byte{1})
			})
		}()
	}
	wg.Wait()
	close(results)

	var won int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ledger.ErrExists), errors.Is(err, ledger.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
}
