package airdrop

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"geodrop/internal/ledger"
	"geodrop/internal/observability/metrics"
)

// Service runs the treasury, registry and claim operations against a ledger.
// Every mutating call is a single ledger transaction.
type Service struct {
	ledger ledger.Ledger
	clock  ledger.Clock
	rent   ledger.Rent
	log    logrus.FieldLogger
}

// NewService wires dependencies.
func NewService(l ledger.Ledger, clock ledger.Clock, rent ledger.Rent, log logrus.FieldLogger) *Service {
	return &Service{ledger: l, clock: clock, rent: rent, log: log}
}

// Now reports the service clock.
func (s *Service) Now() int64 { return s.clock.Now() }

// TreasuryBalance describes the treasury's funds.
type TreasuryBalance struct {
	Held      uint64
	Reserved  uint64
	Available uint64
}

// Treasury returns the treasury record and its balance.
func (s *Service) Treasury(ctx context.Context) (Treasury, TreasuryBalance, error) {
	acct, err := s.ledger.Get(ctx, TreasuryKey)
	if errors.Is(err, ledger.ErrNotFound) {
		return Treasury{}, TreasuryBalance{}, ErrTreasuryNotInitialized
	}
	if err != nil {
		return Treasury{}, TreasuryBalance{}, fmt.Errorf("load treasury: %w", err)
	}
	t, err := DecodeTreasury(acct.Data)
	if err != nil {
		return Treasury{}, TreasuryBalance{}, err
	}
	return t, s.balanceOf(acct), nil
}

func (s *Service) balanceOf(acct ledger.Account) TreasuryBalance {
	reserved := s.rent.MinimumBalance(len(acct.Data))
	available, _ := AvailableBalance(acct.Lamports, reserved)
	return TreasuryBalance{Held: acct.Lamports, Reserved: reserved, Available: available}
}

// Airdrop returns airdrop id.
func (s *Service) Airdrop(ctx context.Context, id uint64) (Airdrop, error) {
	acct, err := s.ledger.Get(ctx, AirdropKey(id))
	if errors.Is(err, ledger.ErrNotFound) {
		return Airdrop{}, ErrAirdropNotFound
	}
	if err != nil {
		return Airdrop{}, fmt.Errorf("load airdrop %d: %w", id, err)
	}
	return DecodeAirdrop(acct.Data)
}

// Receipt returns the claim receipt of claimer for airdrop id.
func (s *Service) Receipt(ctx context.Context, id uint64, claimer solana.PublicKey) (ClaimReceipt, error) {
	acct, err := s.ledger.Get(ctx, ReceiptKey(id, claimer))
	if errors.Is(err, ledger.ErrNotFound) {
		return ClaimReceipt{}, ErrReceiptNotFound
	}
	if err != nil {
		return ClaimReceipt{}, fmt.Errorf("load receipt: %w", err)
	}
	return DecodeReceipt(acct.Data)
}

// WalletBalance returns the balance held by owner.
func (s *Service) WalletBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	acct, err := s.ledger.Get(ctx, WalletKey(owner))
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load wallet: %w", err)
	}
	return acct.Lamports, nil
}

// Fund credits owner's wallet directly. Development faucets only.
func (s *Service) Fund(ctx context.Context, owner solana.PublicKey, amount uint64) error {
	if err := s.ledger.Credit(ctx, WalletKey(owner), amount); err != nil {
		if errors.Is(err, ledger.ErrOverflow) {
			return ErrArithmeticOverflow
		}
		return fmt.Errorf("credit wallet: %w", err)
	}
	s.log.WithFields(logrus.Fields{"wallet": owner.String(), "amount": amount}).Info("wallet funded")
	return nil
}

// loadTreasury reads and decodes the treasury inside tx.
func loadTreasury(ctx context.Context, tx ledger.Tx) (Treasury, ledger.Account, error) {
	acct, err := tx.Get(ctx, TreasuryKey)
	if errors.Is(err, ledger.ErrNotFound) {
		return Treasury{}, ledger.Account{}, ErrTreasuryNotInitialized
	}
	if err != nil {
		return Treasury{}, ledger.Account{}, fmt.Errorf("load treasury: %w", err)
	}
	t, err := DecodeTreasury(acct.Data)
	return t, acct, err
}

// record counts the operation and passes err through.
func record(operation string, err error) error {
	result := "ok"
	if err != nil {
		result = resultLabel(err)
	}
	metrics.CountOperation(operation, result)
	return err
}

func resultLabel(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindState:
		return "rejected"
	case KindNotFound:
		return "not_found"
	case KindUniqueness:
		return "duplicate"
	case KindRetryable:
		return "conflict"
	case KindResource:
		return "insufficient_funds"
	default:
		return "error"
	}
}
