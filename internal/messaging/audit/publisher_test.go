package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodrop/internal/domain/airdrop"
	"geodrop/internal/kafka"
	"geodrop/internal/observability/logging"
)

type fakeSender struct {
	sent []kafka.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg kafka.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestPublisherKeysByAirdrop(t *testing.T) {
	sender := &fakeSender{}
	p := NewPublisher(sender)
	authority := solana.NewWallet().PublicKey()
	ts := time.Unix(1_700_000_000, 0)

	created := airdrop.AirdropCreatedEvent(airdrop.Airdrop{ID: 42, RewardAmount: 9, Creator: authority}, ts)
	require.NoError(t, p.Publish(context.Background(), created))
	require.NoError(t, p.Publish(context.Background(), airdrop.DepositEvent(authority, 5, ts)))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "airdrop:42", sender.sent[0].Key)
	assert.Equal(t, "treasury", sender.sent[1].Key)
	assert.Equal(t, map[string]string{
		HeaderEventID:   created.ID,
		HeaderEventType: airdrop.EventAirdropCreated,
	}, sender.sent[0].Headers)

	var decoded airdrop.Event
	require.NoError(t, json.Unmarshal(sender.sent[0].Value, &decoded))
	assert.Equal(t, created, decoded)
}

func TestPublisherReturnsSendError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := NewPublisher(&fakeSender{err: boom})
	err := p.Publish(context.Background(), airdrop.DepositEvent(solana.NewWallet().PublicKey(), 1, time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(logging.Discard())
	assert.NoError(t, p.Publish(context.Background(), airdrop.Event{ID: "e1", Type: airdrop.EventTreasuryDeposit}))
}

func TestDecode(t *testing.T) {
	var got []airdrop.Event
	handler := HandlerFunc(func(_ context.Context, event airdrop.Event) error {
		got = append(got, event)
		return nil
	})
	decode := Decode(handler, logging.Discard())
	ctx := context.Background()

	require.NoError(t, decode.HandleMessage(ctx, kafka.Message{Value: []byte("not json")}))
	require.NoError(t, decode.HandleMessage(ctx, kafka.Message{Value: []byte(`{"type":"airdrop.created"}`)}))
	require.NoError(t, decode.HandleMessage(ctx, kafka.Message{
		Key:   "airdrop:3",
		Value: []byte(`{"id":"e1","type":"airdrop.claimed","airdrop_id":3,"amount":7,"claims_count":2}`),
	}))

	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, uint64(3), got[0].AirdropID)
	assert.Equal(t, uint16(2), got[0].ClaimsCount)
}

func TestDecodePropagatesHandlerError(t *testing.T) {
	boom := errors.New("db down")
	decode := Decode(HandlerFunc(func(context.Context, airdrop.Event) error { return boom }), logging.Discard())
	err := decode.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"id":"e1","type":"treasury.deposit"}`)})
	assert.ErrorIs(t, err, boom)
}
