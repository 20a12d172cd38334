package airdrop

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Audit event types.
const (
	EventTreasuryInitialized = "treasury.initialized"
	EventTreasuryDeposit     = "treasury.deposit"
	EventAirdropCreated      = "airdrop.created"
	EventAirdropClaimed      = "airdrop.claimed"
)

// Event is the audit record emitted after an operation commits.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Actor       string    `json:"actor"`
	AirdropID   uint64    `json:"airdrop_id,omitempty"`
	Amount      uint64    `json:"amount"`
	ClaimsCount uint16    `json:"claims_count,omitempty"`
	Exhausted   bool      `json:"exhausted,omitempty"`
	Timestamp   time.Time `json:"ts"`
}

func newEvent(typ string, actor solana.PublicKey, ts time.Time) Event {
	return Event{ID: uuid.NewString(), Type: typ, Actor: actor.String(), Timestamp: ts.UTC()}
}

// TreasuryInitializedEvent describes a committed InitializeTreasury.
func TreasuryInitializedEvent(t Treasury, ts time.Time) Event {
	e := newEvent(EventTreasuryInitialized, t.Authority, ts)
	e.Amount = t.TotalDeposited
	return e
}

// DepositEvent describes a committed Deposit.
func DepositEvent(depositor solana.PublicKey, amount uint64, ts time.Time) Event {
	e := newEvent(EventTreasuryDeposit, depositor, ts)
	e.Amount = amount
	return e
}

// AirdropCreatedEvent describes a committed CreateAirdrop.
func AirdropCreatedEvent(a Airdrop, ts time.Time) Event {
	e := newEvent(EventAirdropCreated, a.Creator, ts)
	e.AirdropID = a.ID
	e.Amount = a.RewardAmount
	return e
}

// ClaimedEvent describes a committed ClaimAirdrop.
func ClaimedEvent(r ClaimResult) Event {
	e := newEvent(EventAirdropClaimed, r.Receipt.Claimer, time.Unix(r.Receipt.ClaimedAt, 0))
	e.AirdropID = r.Airdrop.ID
	e.Amount = r.Airdrop.RewardAmount
	e.ClaimsCount = r.Airdrop.ClaimsCount
	e.Exhausted = !r.Airdrop.Active
	return e
}
