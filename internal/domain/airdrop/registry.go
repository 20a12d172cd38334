package airdrop

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"geodrop/internal/ledger"
)

// CreateAirdrop registers a new airdrop. Only the treasury authority may call
// it, and each id can be used once.
func (s *Service) CreateAirdrop(ctx context.Context, caller solana.PublicKey, p CreateParams) (Airdrop, error) {
	var out Airdrop
	err := s.ledger.RunInTx(ctx, func(tx ledger.Tx) error {
		t, _, err := loadTreasury(ctx, tx)
		if err != nil {
			return err
		}
		if !caller.Equals(t.Authority) {
			return ErrUnauthorized
		}
		if err := ValidateCreate(p, s.clock.Now()); err != nil {
			return err
		}

		a := Airdrop{
			ID:              p.ID,
			Latitude:        p.Latitude,
			Longitude:       p.Longitude,
			RewardAmount:    p.RewardAmount,
			ExpiryTimestamp: p.ExpiryTimestamp,
			MaxClaims:       p.MaxClaims,
			ClaimsCount:     0,
			Rarity:          Rarity(p.Rarity),
			Active:          true,
			Creator:         t.Authority,
		}
		data, err := EncodeAirdrop(a)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, AirdropKey(p.ID), data); err != nil {
			if errors.Is(err, ledger.ErrExists) {
				return ErrAirdropExists
			}
			return fmt.Errorf("create airdrop %d: %w", p.ID, err)
		}
		out = a
		return nil
	})
	switch {
	case errors.Is(err, ledger.ErrExists):
		err = ErrAirdropExists
	case errors.Is(err, ledger.ErrConflict):
		err = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return Airdrop{}, record("create_airdrop", err)
	}

	s.log.WithFields(logrus.Fields{
		"airdrop_id": out.ID,
		"latitude":   out.Latitude,
		"longitude":  out.Longitude,
		"reward":     out.RewardAmount,
		"rarity":     out.Rarity.String(),
		"max_claims": out.MaxClaims,
		"expires_at": out.ExpiryTimestamp,
	}).Info("airdrop created")
	return out, record("create_airdrop", nil)
}
