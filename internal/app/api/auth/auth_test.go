package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodrop/internal/ledger/memory"
)

var signedAt = time.UnixMilli(1_700_000_000_000)

func newEngine(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.Now == nil {
		opts.Now = func() time.Time { return signedAt }
	}
	r := gin.New()
	r.POST("/echo", Required(opts), func(c *gin.Context) {
		pub, ok := Identity(c)
		require.True(t, ok)
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"identity": pub.String(), "body": string(body)})
	})
	return r
}

func serve(engine *gin.Engine, header http.Header, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
	req.Header = header.Clone()
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestMessage(t *testing.T) {
	assert.Equal(t, []byte("POST /airdrops/7/claim\n1700000000000\n{}"), Message(http.MethodPost, "/airdrops/7/claim", 1_700_000_000_000, []byte("{}")))
	assert.Equal(t, []byte("POST /treasury\n5\n"), Message(http.MethodPost, "/treasury", 5, nil))
}

func TestRequiredAcceptsSignedRequest(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	body := []byte(`{"amount":5}`)
	h, err := SignAt(key, signedAt, http.MethodPost, "/echo", body)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", h.Get(HeaderTimestamp))

	rec := serve(newEngine(t, Options{Guard: NewLedgerGuard(memory.New())}), h, body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"identity":"`+key.PublicKey().String()+`","body":"{\"amount\":5}"}`, rec.Body.String())
}

func TestRequiredRejects(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	body := []byte(`{"amount":5}`)
	signed, err := SignAt(key, signedAt, http.MethodPost, "/echo", body)
	require.NoError(t, err)

	restamped := signed.Clone()
	restamped.Set(HeaderTimestamp, "1700000000001")

	tests := []struct {
		name   string
		header http.Header
		body   []byte
	}{
		{name: "no headers", header: http.Header{}, body: body},
		{name: "tampered body", header: signed, body: []byte(`{"amount":6}`)},
		{name: "timestamp changed after signing", header: restamped, body: body},
		{
			name: "malformed signature",
			header: http.Header{
				HeaderIdentity:  []string{key.PublicKey().String()},
				HeaderTimestamp: signed.Values(HeaderTimestamp),
				HeaderSignature: []string{"not-a-signature"},
			},
			body: body,
		},
		{
			name: "missing timestamp",
			header: http.Header{
				HeaderIdentity:  signed.Values(HeaderIdentity),
				HeaderSignature: signed.Values(HeaderSignature),
			},
			body: body,
		},
		{
			name: "identity mismatch",
			header: http.Header{
				HeaderIdentity:  []string{solana.NewWallet().PublicKey().String()},
				HeaderTimestamp: signed.Values(HeaderTimestamp),
				HeaderSignature: signed.Values(HeaderSignature),
			},
			body: body,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newEngine(t, Options{Guard: NewLedgerGuard(memory.New())}), tt.header, tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequiredRejectsReplay(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	body := []byte(`{"amount":5}`)
	h, err := SignAt(key, signedAt, http.MethodPost, "/echo", body)
	require.NoError(t, err)
	engine := newEngine(t, Options{Guard: NewLedgerGuard(memory.New())})

	require.Equal(t, http.StatusOK, serve(engine, h, body).Code)
	for i := 0; i < 10; i++ {
		rec := serve(engine, h, body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "signature already used")
	}

	// a fresh signature over the same body is a new request
	again, err := SignAt(key, signedAt.Add(time.Millisecond), http.MethodPost, "/echo", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(engine, again, body).Code)
}

func TestRequiredEnforcesSkewWindow(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	body := []byte(`{}`)
	engine := newEngine(t, Options{Guard: NewLedgerGuard(memory.New()), MaxSkew: time.Minute})

	tests := []struct {
		name   string
		offset time.Duration
		status int
	}{
		{name: "stale", offset: -2 * time.Minute, status: http.StatusUnauthorized},
		{name: "future", offset: 2 * time.Minute, status: http.StatusUnauthorized},
		{name: "edge of window", offset: -time.Minute, status: http.StatusOK},
		{name: "slightly ahead", offset: 30 * time.Second, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := SignAt(key, signedAt.Add(tt.offset), http.MethodPost, "/echo", body)
			require.NoError(t, err)
			assert.Equal(t, tt.status, serve(engine, h, body).Code)
		})
	}
}

type failingGuard struct{}

func (failingGuard) Remember(context.Context, solana.Signature, time.Duration) error {
	return errors.New("connection refused")
}

func TestRequiredGuardUnavailable(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	h, err := SignAt(key, signedAt, http.MethodPost, "/echo", nil)
	require.NoError(t, err)

	rec := serve(newEngine(t, Options{Guard: failingGuard{}}), h, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeKeySetter struct {
	keys map[string]time.Duration
}

func (f *fakeKeySetter) SetIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func TestTTLGuard(t *testing.T) {
	store := &fakeKeySetter{keys: map[string]time.Duration{}}
	key := solana.NewWallet().PrivateKey
	h, err := SignAt(key, signedAt, http.MethodPost, "/echo", nil)
	require.NoError(t, err)
	engine := newEngine(t, Options{Guard: NewTTLGuard(store), MaxSkew: time.Minute})

	require.Equal(t, http.StatusOK, serve(engine, h, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, h, nil).Code)

	sig, err := solana.SignatureFromBase58(h.Get(HeaderSignature))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, store.keys[SignatureKey(sig)])
}

func TestLedgerGuard(t *testing.T) {
	ctx := context.Background()
	g := NewLedgerGuard(memory.New())
	var sig solana.Signature
	sig[0] = 1

	require.NoError(t, g.Remember(ctx, sig, time.Minute))
	assert.ErrorIs(t, g.Remember(ctx, sig, time.Minute), ErrReplayed)

	sig[0] = 2
	assert.NoError(t, g.Remember(ctx, sig, time.Minute))
}
