package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"geodrop/internal/ledger"
)

// ErrReplayed reports a signature that was already accepted.
var ErrReplayed = errors.New("signature already used")

// ReplayGuard remembers accepted signatures.
type ReplayGuard interface {
	// Remember records sig for at least ttl. It returns ErrReplayed when sig
	// is already recorded.
	Remember(ctx context.Context, sig solana.Signature, ttl time.Duration) error
}

// SignatureKey is the storage key of a remembered signature.
func SignatureKey(sig solana.Signature) string {
	return "sig:" + sig.String()
}

// LedgerGuard records signatures as empty ledger accounts through
// create-if-absent. Records never expire.
type LedgerGuard struct {
	ledger ledger.Ledger
}

// NewLedgerGuard builds a guard over l.
func NewLedgerGuard(l ledger.Ledger) *LedgerGuard {
	return &LedgerGuard{ledger: l}
}

// Remember implements ReplayGuard. ttl is ignored.
func (g *LedgerGuard) Remember(ctx context.Context, sig solana.Signature, _ time.Duration) error {
	err := g.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		return tx.Create(ctx, SignatureKey(sig), nil)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrExists), errors.Is(err, ledger.ErrConflict):
		return ErrReplayed
	default:
		return fmt.Errorf("remember signature: %w", err)
	}
}

// KeySetter sets a key with a TTL unless it already exists.
type KeySetter interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// TTLGuard records signatures in an expiring key store such as Redis.
type TTLGuard struct {
	store KeySetter
}

// NewTTLGuard builds a guard over store.
func NewTTLGuard(store KeySetter) *TTLGuard {
	return &TTLGuard{store: store}
}

// Remember implements ReplayGuard.
func (g *TTLGuard) Remember(ctx context.Context, sig solana.Signature, ttl time.Duration) error {
	ok, err := g.store.SetIfAbsent(ctx, SignatureKey(sig), ttl)
	if err != nil {
		return fmt.Errorf("remember signature: %w", err)
	}
	if !ok {
		return ErrReplayed
	}
	return nil
}
