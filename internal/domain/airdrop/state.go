package airdrop

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Structural tags written as the last byte of every record.
const (
	TagTreasury uint8 = 1
	TagAirdrop  uint8 = 2
	TagReceipt  uint8 = 3
)

// Encoded record sizes.
const (
	// 32 (authority) + 8 (total_deposited) + 1 (tag)
	TreasurySize = 32 + 8 + 1
	// 8 (id) + 8 (lat) + 8 (lon) + 8 (reward) + 8 (expiry) + 2 (max_claims)
	// + 2 (claims_count) + 1 (rarity) + 1 (active) + 32 (creator) + 1 (tag)
	AirdropSize = 8 + 8 + 8 + 8 + 8 + 2 + 2 + 1 + 1 + 32 + 1
	// 32 (airdrop) + 32 (claimer) + 8 (claimed_at) + 1 (tag)
	ReceiptSize = 32 + 32 + 8 + 1
)

// ErrCorruptRecord is returned when stored bytes do not decode to the expected record.
var ErrCorruptRecord = errors.New("corrupt record")

// Treasury is the singleton fund pool. Its spendable balance lives on the
// ledger account, not in this record.
type Treasury struct {
	Authority solana.PublicKey
	// TotalDeposited counts initial funding plus deposits. Claims never touch it.
	TotalDeposited uint64
}

// Airdrop is a geo-tagged, capacity and time bounded reward offer.
type Airdrop struct {
	ID uint64
	// Latitude and Longitude are micro-degrees (degrees × 1e6).
	Latitude        int64
	Longitude       int64
	RewardAmount    uint64
	ExpiryTimestamp int64
	MaxClaims       uint16
	ClaimsCount     uint16
	Rarity          Rarity
	Active          bool
	Creator         solana.PublicKey
}

// Status is the externally visible lifecycle state of an airdrop.
type Status string

const (
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
	StatusExpired   Status = "expired"
)

// Status derives the lifecycle state at time now. Exhaustion is stored;
// expiry is evaluated live.
func (a Airdrop) Status(now int64) Status {
	if !a.Active {
		return StatusExhausted
	}
	if now >= a.ExpiryTimestamp {
		return StatusExpired
	}
	return StatusActive
}

// ClaimReceipt proves that Claimer claimed the airdrop at Airdrop.
type ClaimReceipt struct {
	Airdrop   solana.PublicKey
	Claimer   solana.PublicKey
	ClaimedAt int64
}

func (t *Treasury) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(t.Authority[:], false); err != nil {
		return err
	}
	if err := enc.Encode(t.TotalDeposited); err != nil {
		return err
	}
	return enc.Encode(TagTreasury)
}

func (t *Treasury) UnmarshalWithDecoder(dec *bin.Decoder) error {
	if err := readKey(dec, &t.Authority); err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	if err := dec.Decode(&t.TotalDeposited); err != nil {
		return fmt.Errorf("total_deposited: %w", err)
	}
	return readTag(dec, TagTreasury)
}

func (a *Airdrop) MarshalWithEncoder(enc *bin.Encoder) error {
	for _, v := range []interface{}{
		a.ID,
		a.Latitude,
		a.Longitude,
		a.RewardAmount,
		a.ExpiryTimestamp,
		a.MaxClaims,
		a.ClaimsCount,
		uint8(a.Rarity),
		a.Active,
	} {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	if err := enc.WriteBytes(a.Creator[:], false); err != nil {
		return err
	}
	return enc.Encode(TagAirdrop)
}

func (a *Airdrop) UnmarshalWithDecoder(dec *bin.Decoder) error {
	var rarity uint8
	if err := dec.Decode(&a.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if err := dec.Decode(&a.Latitude); err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	if err := dec.Decode(&a.Longitude); err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	if err := dec.Decode(&a.RewardAmount); err != nil {
		return fmt.Errorf("reward_amount: %w", err)
	}
	if err := dec.Decode(&a.ExpiryTimestamp); err != nil {
		return fmt.Errorf("expiry_timestamp: %w", err)
	}
	if err := dec.Decode(&a.MaxClaims); err != nil {
		return fmt.Errorf("max_claims: %w", err)
	}
	if err := dec.Decode(&a.ClaimsCount); err != nil {
		return fmt.Errorf("claims_count: %w", err)
	}
	if err := dec.Decode(&rarity); err != nil {
		return fmt.Errorf("rarity: %w", err)
	}
	a.Rarity = Rarity(rarity)
	if err := dec.Decode(&a.Active); err != nil {
		return fmt.Errorf("active: %w", err)
	}
	if err := readKey(dec, &a.Creator); err != nil {
		return fmt.Errorf("creator: %w", err)
	}
	return readTag(dec, TagAirdrop)
}

func (r *ClaimReceipt) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(r.Airdrop[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(r.Claimer[:], false); err != nil {
		return err
	}
	if err := enc.Encode(r.ClaimedAt); err != nil {
		return err
	}
	return enc.Encode(TagReceipt)
}

func (r *ClaimReceipt) UnmarshalWithDecoder(dec *bin.Decoder) error {
	if err := readKey(dec, &r.Airdrop); err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	if err := readKey(dec, &r.Claimer); err != nil {
		return fmt.Errorf("claimer: %w", err)
	}
	if err := dec.Decode(&r.ClaimedAt); err != nil {
		return fmt.Errorf("claimed_at: %w", err)
	}
	return readTag(dec, TagReceipt)
}

func readKey(dec *bin.Decoder, out *solana.PublicKey) error {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(out[:], b)
	return nil
}

func readTag(dec *bin.Decoder, want uint8) error {
	got, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	if got != want {
		return fmt.Errorf("%w: tag %d, want %d", ErrCorruptRecord, got, want)
	}
	return nil
}

type codecRecord interface {
	MarshalWithEncoder(enc *bin.Encoder) error
	UnmarshalWithDecoder(dec *bin.Decoder) error
}

func encodeRecord(r codecRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := r.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, size int, r codecRecord) error {
	if len(data) != size {
		return fmt.Errorf("%w: %d bytes, want %d", ErrCorruptRecord, len(data), size)
	}
	if err := r.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}

// EncodeTreasury serializes t in its persisted layout.
func EncodeTreasury(t Treasury) ([]byte, error) { return encodeRecord(&t) }

// DecodeTreasury parses a persisted treasury record.
func DecodeTreasury(data []byte) (Treasury, error) {
	var t Treasury
	err := decodeRecord(data, TreasurySize, &t)
	return t, err
}

// EncodeAirdrop serializes a in its persisted layout.
func EncodeAirdrop(a Airdrop) ([]byte, error) { return encodeRecord(&a) }

// DecodeAirdrop parses a persisted airdrop record.
func DecodeAirdrop(data []byte) (Airdrop, error) {
	var a Airdrop
	err := decodeRecord(data, AirdropSize, &a)
	return a, err
}

// EncodeReceipt serializes r in its persisted layout.
func EncodeReceipt(r ClaimReceipt) ([]byte, error) { return encodeRecord(&r) }

// DecodeReceipt parses a persisted claim receipt.
func DecodeReceipt(data []byte) (ClaimReceipt, error) {
	var r ClaimReceipt
	err := decodeRecord(data, ReceiptSize, &r)
	return r, err
}
