package airdrop

// CreateParams are the caller-supplied fields of a new airdrop.
type CreateParams struct {
	ID              uint64
	Latitude        int64
	Longitude       int64
	RewardAmount    uint64
	ExpiryTimestamp int64
	MaxClaims       uint16
	Rarity          uint8
}

// ValidateCreate checks creation parameters in order and reports the first failure.
func ValidateCreate(p CreateParams, now int64) error {
	if err := CheckRarity(p.Rarity); err != nil {
		return err
	}
	if err := CheckExpiry(p.ExpiryTimestamp, now); err != nil {
		return err
	}
	if err := CheckRewardAmount(p.RewardAmount); err != nil {
		return err
	}
	return CheckMaxClaims(p.MaxClaims)
}

func CheckRarity(r uint8) error {
	if !Rarity(r).Valid() {
		return ErrInvalidRarity
	}
	return nil
}

func CheckExpiry(expiry, now int64) error {
	if expiry <= now {
		return ErrInvalidExpiry
	}
	return nil
}

func CheckRewardAmount(amount uint64) error {
	if amount == 0 {
		return ErrInvalidRewardAmount
	}
	return nil
}

func CheckMaxClaims(max uint16) error {
	if max == 0 {
		return ErrInvalidMaxClaims
	}
	return nil
}

// ValidateClaimable checks that a can accept one more claim at time now. An
// airdrop deactivated by reaching capacity reports both ErrAirdropInactive and
// ErrMaxClaimsReached.
func ValidateClaimable(a Airdrop, now int64) error {
	if !a.Active {
		if a.ClaimsCount >= a.MaxClaims {
			return errExhausted
		}
		return ErrAirdropInactive
	}
	if now >= a.ExpiryTimestamp {
		return ErrAirdropExpired
	}
	if a.ClaimsCount >= a.MaxClaims {
		return ErrMaxClaimsReached
	}
	return nil
}

// AvailableBalance is the spendable part of held, or false when held does not
// even cover the reserved minimum.
func AvailableBalance(held, reserved uint64) (uint64, bool) {
	if held < reserved {
		return 0, false
	}
	return held - reserved, true
}

// CheckFunds verifies the treasury can pay amount while keeping its reserve.
func CheckFunds(held, reserved, amount uint64) error {
	available, ok := AvailableBalance(held, reserved)
	if !ok || available < amount {
		return ErrInsufficientTreasuryFunds
	}
	return nil
}
