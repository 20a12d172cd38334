package airdrop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateClaimableOrder(t *testing.T) {
	const now = 1_000
	tests := []struct {
		name string
		a    Airdrop
		want []error
	}{
		{"claimable", Airdrop{Active: true, ExpiryTimestamp: now + 1, MaxClaims: 2, ClaimsCount: 1}, nil},
		{"inactive and expired", Airdrop{Active: false, ExpiryTimestamp: now, MaxClaims: 5, ClaimsCount: 1}, []error{ErrAirdropInactive}},
		{"exhausted", Airdrop{Active: false, ExpiryTimestamp: now + 1, MaxClaims: 2, ClaimsCount: 2}, []error{ErrAirdropInactive, ErrMaxClaimsReached}},
		{"expired at boundary", Airdrop{Active: true, ExpiryTimestamp: now, MaxClaims: 2}, []error{ErrAirdropExpired}},
		{"full but active", Airdrop{Active: true, ExpiryTimestamp: now + 1, MaxClaims: 2, ClaimsCount: 2}, []error{ErrMaxClaimsReached}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClaimable(tt.a, now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
			assert.Equal(t, KindState, KindOf(err))
		})
	}
	assert.NotErrorIs(t, ValidateClaimable(Airdrop{Active: false, MaxClaims: 5}, now), ErrMaxClaimsReached)
}

func TestCheckFunds(t *testing.T) {
	assert.NoError(t, CheckFunds(150, 50, 100))
	assert.ErrorIs(t, CheckFunds(149, 50, 100), ErrInsufficientTreasuryFunds)
	assert.ErrorIs(t, CheckFunds(40, 50, 0), ErrInsufficientTreasuryFunds)
	assert.NoError(t, CheckFunds(50, 50, 0))

	available, ok := AvailableBalance(40, 50)
	assert.False(t, ok)
	assert.Zero(t, available)
}

func TestRarity(t *testing.T) {
	assert.Len(t, Rarities(), 5)
	assert.Equal(t, "whale", RarityWhale.String())
	assert.Equal(t, "rarity(9)", Rarity(9).String())

	reward, ok := RarityDolphin.DefaultReward()
	assert.True(t, ok)
	assert.Equal(t, uint64(500_000_000), reward)

	_, ok = Rarity(5).DefaultReward()
	assert.False(t, ok)
	assert.ErrorIs(t, CheckRarity(5), ErrInvalidRarity)
	assert.NoError(t, CheckRarity(4))
}
