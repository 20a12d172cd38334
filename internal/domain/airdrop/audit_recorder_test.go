package airdrop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodrop/internal/db"
	"geodrop/internal/observability/logging"
)

type fakeAuditStore struct {
	entries []db.AuditLog
	err     error
}

func (f *fakeAuditStore) InsertAuditLog(_ context.Context, entry db.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestClaimedEvent(t *testing.T) {
	claimer := solana.NewWallet().PublicKey()
	ev := ClaimedEvent(ClaimResult{
		Receipt: ClaimReceipt{Claimer: claimer, ClaimedAt: 1_700_000_000},
		Airdrop: Airdrop{ID: 3, RewardAmount: 500, ClaimsCount: 2, MaxClaims: 2, Active: false},
	})

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventAirdropClaimed, ev.Type)
	assert.Equal(t, claimer.String(), ev.Actor)
	assert.Equal(t, uint64(3), ev.AirdropID)
	assert.Equal(t, uint64(500), ev.Amount)
	assert.Equal(t, uint16(2), ev.ClaimsCount)
	assert.True(t, ev.Exhausted)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), ev.Timestamp)

	other := ClaimedEvent(ClaimResult{})
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestAuditRecorderStoresEvent(t *testing.T) {
	store := &fakeAuditStore{}
	rec := NewAuditRecorder(store, logging.Discard())
	authority := solana.NewWallet().PublicKey()
	ev := AirdropCreatedEvent(Airdrop{ID: 11, RewardAmount: 99, Creator: authority}, time.Unix(10, 0))

	require.NoError(t, rec.HandleEvent(context.Background(), ev))
	require.Len(t, store.entries, 1)
	assert.Equal(t, db.AuditLog{
		EventID:    ev.ID,
		EventType:  EventAirdropCreated,
		Actor:      authority.String(),
		AirdropID:  11,
		Amount:     99,
		OccurredAt: time.Unix(10, 0).UTC(),
	}, store.entries[0])
}

func TestAuditRecorderPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	rec := NewAuditRecorder(&fakeAuditStore{err: boom}, logging.Discard())
	err := rec.HandleEvent(context.Background(), DepositEvent(solana.NewWallet().PublicKey(), 5, time.Now()))
	assert.ErrorIs(t, err, boom)
}
