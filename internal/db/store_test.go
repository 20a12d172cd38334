package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"geodrop/internal/db"
	"geodrop/internal/domain/airdrop"
	"geodrop/internal/ledger"
	"geodrop/internal/ledger/ledgertest"
	"geodrop/internal/observability/logging"
)

func startPostgres(t *testing.T) *db.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("geodrop"),
		postgres.WithUsername("geodrop"),
		postgres.WithPassword("geodrop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	store, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestStore(t *testing.T) {
	store := startPostgres(t)

	t.Run("Ledger", func(t *testing.T) {
		ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
			store.Truncate(t)
			return store
		})
	})

	t.Run("EnsureSchemaIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.EnsureSchema(context.Background()))
	})

	t.Run("Audit", func(t *testing.T) {
		store.Truncate(t)
		testAuditLog(t, store)
	})

	t.Run("Overflow", func(t *testing.T) {
		store.Truncate(t)
		ctx := context.Background()
		err := store.Credit(ctx, "w", 1<<63)
		assert.ErrorIs(t, err, ledger.ErrOverflow)

		require.NoError(t, store.Credit(ctx, "w", 1<<62))
		err = store.Credit(ctx, "w", 1<<62)
		assert.ErrorIs(t, err, ledger.ErrOverflow)
	})

	t.Run("SelfTransferKeepsBalance", func(t *testing.T) {
		store.Truncate(t)
		ctx := context.Background()
		require.NoError(t, store.Credit(ctx, "w", 10))
		require.NoError(t, store.RunInTx(ctx, func(tx ledger.Tx) error {
			return tx.Transfer(ctx, "w", "w", 10)
		}))
		acct, err := store.Get(ctx, "w")
		require.NoError(t, err)
		assert.Equal(t, uint64(10), acct.Lamports)
	})

	t.Run("ClaimCapacity", func(t *testing.T) {
		store.Truncate(t)
		testClaimCapacity(t, store)
	})
}

func testAuditLog(t *testing.T, store *db.Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []db.AuditLog{
		{EventID: "b", EventType: airdrop.EventAirdropClaimed, Actor: "claimer", AirdropID: 7, Amount: 5, ClaimsCount: 1, OccurredAt: base.Add(time.Second)},
		{EventID: "a", EventType: airdrop.EventAirdropCreated, Actor: "authority", AirdropID: 7, Amount: 5, OccurredAt: base},
		{EventID: "c", EventType: airdrop.EventTreasuryDeposit, Actor: "authority", Amount: 9, OccurredAt: base},
	}
	for _, e := range entries {
		require.NoError(t, store.InsertAuditLog(ctx, e))
	}
	// redelivery
	require.NoError(t, store.InsertAuditLog(ctx, entries[0]))

	got, err := store.ListAuditLog(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EventID)
	assert.Equal(t, "b", got[1].EventID)
	assert.Equal(t, uint16(1), got[1].ClaimsCount)
	assert.True(t, got[1].OccurredAt.Equal(base.Add(time.Second)))

	got, err = store.ListAuditLog(ctx, 7, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func testClaimCapacity(t *testing.T, store *db.Store) {
	ctx := context.Background()
	clock := ledger.NewManualClock(1_700_000_000)
	svc := airdrop.NewService(store, clock, ledger.DefaultRent, logging.Discard())

	authority := solana.NewWallet().PublicKey()
	require.NoError(t, svc.Fund(ctx, authority, 1_000_000_000))
	_, err := svc.InitializeTreasury(ctx, authority, 1_000_000_000)
	require.NoError(t, err)
	_, err = svc.CreateAirdrop(ctx, authority, airdrop.CreateParams{
		ID:              1,
		RewardAmount:    1_000,
		ExpiryTimestamp: clock.Now() + 60,
		MaxClaims:       5,
		Rarity:          uint8(airdrop.RarityShark),
	})
	require.NoError(t, err)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := svc.ClaimAirdrop(ctx, 1, solana.NewWallet().PublicKey())
			errs <- err
		}()
	}
	var won, full int
	for i := 0; i < n; i++ {
		err := <-errs
		switch {
		case err == nil:
			won++
		case airdrop.KindOf(err) == airdrop.KindState:
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, won)
	assert.Equal(t, n-5, full)

	a, err := svc.Airdrop(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), a.ClaimsCount)
	assert.False(t, a.Active)
}
