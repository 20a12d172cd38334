package airdrop

import "fmt"

// Rarity is the tier of an airdrop, from the common Fish to the rare Whale.
type Rarity uint8

const (
	RarityFish Rarity = iota
	RarityTurtle
	RarityDolphin
	RarityShark
	RarityWhale
)

// MaxRarity is the highest valid tier.
const MaxRarity = RarityWhale

var rarityNames = [...]string{"fish", "turtle", "dolphin", "shark", "whale"}

// Default payouts per tier in the smallest currency unit. Creation takes an
// explicit reward; these are only suggestions surfaced to clients.
var defaultRewards = [...]uint64{
	100_000_000,
	250_000_000,
	500_000_000,
	1_000_000_000,
	2_000_000_000,
}

// Valid reports whether r is within [RarityFish, RarityWhale].
func (r Rarity) Valid() bool { return r <= MaxRarity }

func (r Rarity) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rarity(%d)", uint8(r))
	}
	return rarityNames[r]
}

// DefaultReward returns the suggested payout for the tier.
func (r Rarity) DefaultReward() (uint64, bool) {
	if !r.Valid() {
		return 0, false
	}
	return defaultRewards[r], true
}

// Rarities lists every valid tier in ascending order.
func Rarities() []Rarity {
	out := make([]Rarity, 0, int(MaxRarity)+1)
	for r := RarityFish; r <= MaxRarity; r++ {
		out = append(out, r)
	}
	return out
}
