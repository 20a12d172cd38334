package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"geodrop/internal/ledger"
	"geodrop/internal/observability/metrics"
)

// ClaimResult is the state committed by a successful claim.
type ClaimResult struct {
	Receipt ClaimReceipt
	// Airdrop is the record after the claim was applied.
	Airdrop Airdrop
}

// ClaimAirdrop pays claimer the reward of airdrop id. All checks run before any
// write. A wallet that already holds a receipt is told so before the airdrop
// state is checked; the create at ReceiptKey(id, claimer) is what rejects
// concurrent duplicates.
func (s *Service) ClaimAirdrop(ctx context.Context, id uint64, claimer solana.PublicKey) (ClaimResult, error) {
	var out ClaimResult
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		dropAcct, err := tx.Get(ctx, AirdropKey(id))
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrAirdropNotFound
		}
		if err != nil {
			return fmt.Errorf("load airdrop %d: %w", id, err)
		}
		a, err := DecodeAirdrop(dropAcct.Data)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ctx, ReceiptKey(id, claimer)); err == nil {
			return ErrAlreadyClaimed
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("load receipt: %w", err)
		}
		_, treasuryAcct, err := loadTreasury(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := ValidateClaimable(a, now); err != nil {
			return err
		}
		reserved := s.rent.MinimumBalance(len(treasuryAcct.Data))
		if err := CheckFunds(treasuryAcct.Lamports, reserved, a.RewardAmount); err != nil {
			return err
		}

		receipt := ClaimReceipt{
			Airdrop:   Ref(AirdropKey(id)),
			Claimer:   claimer,
			ClaimedAt: now,
		}
		receiptData, err := EncodeReceipt(receipt)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, ReceiptKey(id, claimer), receiptData); err != nil {
			if errors.Is(err, ledger.ErrExists) {
				return ErrAlreadyClaimed
			}
			return fmt.Errorf("create receipt: %w", err)
		}

		if err := tx.Transfer(ctx, TreasuryKey, WalletKey(claimer), a.RewardAmount); err != nil {
			switch {
			case errors.Is(err, ledger.ErrInsufficientFunds):
				return ErrInsufficientTreasuryFunds
			case errors.Is(err, ledger.ErrOverflow):
				return ErrArithmeticOverflow
			}
			return fmt.Errorf("pay claimer: %w", err)
		}

		if a.ClaimsCount == math.MaxUint16 {
			return ErrArithmeticOverflow
		}
		a.ClaimsCount++
		if a.ClaimsCount == a.MaxClaims {
			a.Active = false
		}
		dropData, err := EncodeAirdrop(a)
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, AirdropKey(id), dropData); err != nil {
			return fmt.Errorf("update airdrop %d: %w", id, err)
		}

		out = ClaimResult{Receipt: receipt, Airdrop: a}
		return nil
	})
	if err != nil {
		return ClaimResult{}, record("claim_airdrop", s.classifyConflict(ctx, id, claimer, err))
	}

	metrics.AddPayout(out.Airdrop.RewardAmount)
	s.log.WithFields(logrus.Fields{
		"airdrop_id":   id,
		"claimer":      claimer.String(),
		"amount":       out.Airdrop.RewardAmount,
		"claims_count": out.Airdrop.ClaimsCount,
		"max_claims":   out.Airdrop.MaxClaims,
		"active":       out.Airdrop.Active,
	}).Info("airdrop claimed")
	return out, record("claim_airdrop", nil)
}

// classifyConflict turns a rejected commit into AlreadyClaimed when the
// winning transaction created this claimer's receipt.
func (s *Service) classifyConflict(ctx context.Context, id uint64, claimer solana.PublicKey, err error) error {
	if !errors.Is(err, ledger.ErrConflict) {
		return err
	}
	if _, getErr := s.ledger.Get(ctx, ReceiptKey(id, claimer)); getErr == nil {
		return ErrAlreadyClaimed
	}
	return fmt.Errorf("%w: %w", ErrConflict, err)
}
