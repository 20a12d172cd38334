package airdrop

import (
	"errors"
	"fmt"
)

// Validation errors: the caller must change its input.
var (
	ErrInvalidRarity       = errors.New("invalid rarity tier")
	ErrInvalidExpiry       = errors.New("expiry timestamp must be in the future")
	ErrInvalidRewardAmount = errors.New("reward amount must be greater than zero")
	ErrInvalidMaxClaims    = errors.New("max claims must be at least one")
	ErrUnauthorized        = errors.New("caller is not the treasury authority")
)

// State errors: the airdrop no longer accepts claims.
var (
	ErrAirdropInactive  = errors.New("airdrop is no longer active")
	ErrAirdropExpired   = errors.New("airdrop has expired")
	ErrMaxClaimsReached = errors.New("maximum claims reached for this airdrop")

	errExhausted = fmt.Errorf("%w: %w", ErrAirdropInactive, ErrMaxClaimsReached)
)

// Lookup errors.
var (
	ErrAirdropNotFound        = errors.New("airdrop not found")
	ErrTreasuryNotInitialized = errors.New("treasury not initialized")
	ErrReceiptNotFound        = errors.New("claim receipt not found")
)

// Uniqueness errors: the operation already happened or collided with one that did.
var (
	ErrAlreadyClaimed     = errors.New("airdrop already claimed by this wallet")
	ErrAlreadyInitialized = errors.New("treasury already initialized")
	ErrAirdropExists      = errors.New("airdrop id already in use")
	// ErrConflict means a concurrent operation committed first. Nothing was
	// written; the caller may resubmit.
	ErrConflict = errors.New("concurrent update, resubmit the operation")
)

// Resource errors.
var (
	ErrInsufficientTreasuryFunds = errors.New("treasury has insufficient funds")
	ErrInsufficientFunds         = errors.New("wallet has insufficient funds")
)

// ErrArithmeticOverflow guards counters that cannot realistically wrap.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindState
	KindNotFound
	KindUniqueness
	KindRetryable
	KindResource
	KindFatal
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidRarity, KindValidation},
	{ErrInvalidExpiry, KindValidation},
	{ErrInvalidRewardAmount, KindValidation},
	{ErrInvalidMaxClaims, KindValidation},
	{ErrAirdropInactive, KindState},
	{ErrAirdropExpired, KindState},
	{ErrMaxClaimsReached, KindState},
	{ErrAirdropNotFound, KindNotFound},
	{ErrTreasuryNotInitialized, KindNotFound},
	{ErrReceiptNotFound, KindNotFound},
	{ErrAlreadyClaimed, KindUniqueness},
	{ErrAlreadyInitialized, KindUniqueness},
	{ErrAirdropExists, KindUniqueness},
	{ErrConflict, KindRetryable},
	{ErrInsufficientTreasuryFunds, KindResource},
	{ErrInsufficientFunds, KindResource},
	{ErrArithmeticOverflow, KindFatal},
	{ErrCorruptRecord, KindFatal},
}

// KindOf classifies err. Unrecognised errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
