package airdrop

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSizes(t *testing.T) {
	assert.Equal(t, 41, TreasurySize)
	assert.Equal(t, 79, AirdropSize)
	assert.Equal(t, 73, ReceiptSize)
}

func TestTreasuryLayout(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	data, err := EncodeTreasury(Treasury{Authority: authority, TotalDeposited: 0x0102030405060708})
	require.NoError(t, err)
	require.Len(t, data, TreasurySize)

	assert.Equal(t, authority[:], data[:32])
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(data[32:40]))
	assert.Equal(t, TagTreasury, data[40])
}

func TestAirdropLayout(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	a := Airdrop{
		ID:              9,
		Latitude:        -1,
		Longitude:       2,
		RewardAmount:    3,
		ExpiryTimestamp: 4,
		MaxClaims:       5,
		ClaimsCount:     6,
		Rarity:          RarityShark,
		Active:          true,
		Creator:         creator,
	}
	data, err := EncodeAirdrop(a)
	require.NoError(t, err)
	require.Len(t, data, AirdropSize)

	le := binary.LittleEndian
	assert.Equal(t, uint64(9), le.Uint64(data[0:8]))
	assert.Equal(t, int64(-1), int64(le.Uint64(data[8:16])))
	assert.Equal(t, int64(2), int64(le.Uint64(data[16:24])))
	assert.Equal(t, uint64(3), le.Uint64(data[24:32]))
	assert.Equal(t, int64(4), int64(le.Uint64(data[32:40])))
	assert.Equal(t, uint16(5), le.Uint16(data[40:42]))
	assert.Equal(t, uint16(6), le.Uint16(data[42:44]))
	assert.Equal(t, byte(RarityShark), data[44])
	assert.Equal(t, byte(1), data[45])
	assert.Equal(t, creator[:], data[46:78])
	assert.Equal(t, TagAirdrop, data[78])

	back, err := DecodeAirdrop(data)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestReceiptLayout(t *testing.T) {
	claimer := solana.NewWallet().PublicKey()
	ref := Ref(AirdropKey(3))
	data, err := EncodeReceipt(ClaimReceipt{Airdrop: ref, Claimer: claimer, ClaimedAt: 1_700_000_123})
	require.NoError(t, err)
	require.Len(t, data, ReceiptSize)

	assert.Equal(t, ref[:], data[:32])
	assert.Equal(t, claimer[:], data[32:64])
	assert.Equal(t, int64(1_700_000_123), int64(binary.LittleEndian.Uint64(data[64:72])))
	assert.Equal(t, TagReceipt, data[72])
}

func TestDecodeRejectsCorruptRecords(t *testing.T) {
	treasury, err := EncodeTreasury(Treasury{})
	require.NoError(t, err)

	_, err = DecodeTreasury(treasury[:40])
	assert.ErrorIs(t, err, ErrCorruptRecord)

	wrongTag := append([]byte(nil), treasury...)
	wrongTag[40] = TagReceipt
	_, err = DecodeTreasury(wrongTag)
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, err = DecodeReceipt(make([]byte, AirdropSize))
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.Equal(t, KindFatal, KindOf(err))
}

func TestAirdropStatus(t *testing.T) {
	a := Airdrop{ExpiryTimestamp: 100, MaxClaims: 2, Active: true}
	assert.Equal(t, StatusActive, a.Status(99))
	assert.Equal(t, StatusExpired, a.Status(100))

	a.Active = false
	assert.Equal(t, StatusExhausted, a.Status(99))
	assert.Equal(t, StatusExhausted, a.Status(100))
}

func TestKeysAreDistinct(t *testing.T) {
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	assert.Equal(t, "airdrop:7", AirdropKey(7))
	assert.Equal(t, "claim:7:"+alice.String(), ReceiptKey(7, alice))
	assert.Equal(t, "wallet:"+alice.String(), WalletKey(alice))

	assert.NotEqual(t, ReceiptKey(7, alice), ReceiptKey(7, bob))
	assert.NotEqual(t, ReceiptKey(7, alice), ReceiptKey(8, alice))
	assert.Equal(t, Ref(AirdropKey(7)), Ref(AirdropKey(7)))
	assert.NotEqual(t, Ref(AirdropKey(7)), Ref(AirdropKey(70)))
}
