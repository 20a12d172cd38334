package airdrop

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TreasuryKey is the fixed ledger key of the singleton treasury.
const TreasuryKey = "treasury"

// AirdropKey returns the ledger key of airdrop id.
func AirdropKey(id uint64) string {
	return fmt.Sprintf("airdrop:%d", id)
}

// ReceiptKey returns the ledger key of the receipt for (id, claimer). Creating
// an account at this key is what makes a claim unique.
func ReceiptKey(id uint64, claimer solana.PublicKey) string {
	return fmt.Sprintf("claim:%d:%s", id, claimer.String())
}

// WalletKey returns the ledger key holding owner's balance.
func WalletKey(owner solana.PublicKey) string {
	return "wallet:" + owner.String()
}

// Ref is the 32-byte content address of a ledger key, used where a record
// points at another record.
func Ref(key string) solana.PublicKey {
	return solana.PublicKey(sha256.Sum256([]byte(key)))
}
