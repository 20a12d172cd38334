package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"geodrop/internal/ledger"
)

// InitializeTreasury creates the singleton treasury owned by authority and
// moves fundAmount from the authority's wallet into it.
func (s *Service) InitializeTreasury(ctx context.Context, authority solana.PublicKey, fundAmount uint64) (Treasury, error) {
	t := Treasury{Authority: authority, TotalDeposited: fundAmount}
	data, err := EncodeTreasury(t)
	if err != nil {
		return Treasury{}, record("initialize_treasury", err)
	}

	err = s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		if err := tx.Create(ctx, TreasuryKey, data); err != nil {
			if errors.Is(err, ledger.ErrExists) {
				return ErrAlreadyInitialized
			}
			return fmt.Errorf("create treasury: %w", err)
		}
		if fundAmount == 0 {
			return nil
		}
		return transferIn(ctx, tx, authority, fundAmount)
	})
	switch {
	case errors.Is(err, ledger.ErrExists):
		err = ErrAlreadyInitialized
	case errors.Is(err, ledger.ErrConflict):
		err = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return Treasury{}, record("initialize_treasury", err)
	}

	s.log.WithFields(logrus.Fields{
		"authority": authority.String(),
		"amount":    fundAmount,
	}).Info("treasury initialized")
	return t, record("initialize_treasury", nil)
}

// Deposit moves amount from depositor's wallet into the treasury and adds it
// to TotalDeposited.
func (s *Service) Deposit(ctx context.Context, depositor solana.PublicKey, amount uint64) (Treasury, error) {
	var out Treasury
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		t, _, err := loadTreasury(ctx, tx)
		if err != nil {
			return err
		}
		if amount == 0 {
			out = t
			return nil
		}
		if t.TotalDeposited > math.MaxUint64-amount {
			return ErrArithmeticOverflow
		}
		t.TotalDeposited += amount
		data, err := EncodeTreasury(t)
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, TreasuryKey, data); err != nil {
			return fmt.Errorf("update treasury: %w", err)
		}
		if err := transferIn(ctx, tx, depositor, amount); err != nil {
			return err
		}
		out = t
		return nil
	})
	if errors.Is(err, ledger.ErrConflict) {
		err = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return Treasury{}, record("deposit", err)
	}

	s.log.WithFields(logrus.Fields{
		"depositor":       depositor.String(),
		"amount":          amount,
		"total_deposited": out.TotalDeposited,
	}).Info("treasury deposit")
	return out, record("deposit", nil)
}

func transferIn(ctx context.Context, tx ledger.Tx, from solana.PublicKey, amount uint64) error {
	err := tx.Transfer(ctx, WalletKey(from), TreasuryKey, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrOverflow):
		return ErrArithmeticOverflow
	default:
		return fmt.Errorf("fund treasury: %w", err)
	}
}
