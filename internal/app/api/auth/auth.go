// Package auth authenticates callers by an ed25519 signature over the request.
//
// A signed request carries three headers:
//
//	X-Identity:  base58 public key of the caller
//	X-Timestamp: unix milliseconds at signing time
//	X-Signature: base58 signature of METHOD + " " + PATH + "\n" + TIMESTAMP + "\n" + BODY
//
// Requests outside the skew window are rejected, and a signature is accepted
// once.
package auth

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// Header names.
const (
	HeaderIdentity  = "X-Identity"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// DefaultMaxSkew bounds how far a request timestamp may drift from the server clock.
const DefaultMaxSkew = 5 * time.Minute

const identityKey = "geodrop.identity"

// maxBody bounds the body read for signature verification.
const maxBody = 1 << 20

// Options configures Required.
type Options struct {
	// Guard rejects reused signatures. Nil disables replay tracking.
	Guard   ReplayGuard
	MaxSkew time.Duration
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxSkew <= 0 {
		o.MaxSkew = DefaultMaxSkew
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Message returns the bytes a caller signs. ts is in unix milliseconds.
func Message(method, path string, ts int64, body []byte) []byte {
	stamp := strconv.FormatInt(ts, 10)
	msg := make([]byte, 0, len(method)+len(path)+len(stamp)+3+len(body))
	msg = append(msg, method...)
	msg = append(msg, ' ')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	msg = append(msg, stamp...)
	msg = append(msg, '\n')
	return append(msg, body...)
}

// Sign produces the headers for a request signed by key now.
func Sign(key solana.PrivateKey, method, path string, body []byte) (http.Header, error) {
	return SignAt(key, time.Now(), method, path, body)
}

// SignAt is Sign with an explicit signing time.
func SignAt(key solana.PrivateKey, at time.Time, method, path string, body []byte) (http.Header, error) {
	ts := at.UnixMilli()
	sig, err := key.Sign(Message(method, path, ts, body))
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set(HeaderIdentity, key.PublicKey().String())
	h.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	h.Set(HeaderSignature, sig.String())
	return h, nil
}

// Required rejects requests without a fresh, unused, valid signature and
// stores the caller identity for Identity.
func Required(opts Options) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		pub, err := solana.PublicKeyFromBase58(c.GetHeader(HeaderIdentity))
		if err != nil {
			abort(c, "missing or malformed "+HeaderIdentity)
			return
		}
		sig, err := solana.SignatureFromBase58(c.GetHeader(HeaderSignature))
		if err != nil {
			abort(c, "missing or malformed "+HeaderSignature)
			return
		}
		ts, err := strconv.ParseInt(c.GetHeader(HeaderTimestamp), 10, 64)
		if err != nil {
			abort(c, "missing or malformed "+HeaderTimestamp)
			return
		}
		if skew := opts.Now().Sub(time.UnixMilli(ts)); skew > opts.MaxSkew || skew < -opts.MaxSkew {
			abort(c, HeaderTimestamp+" outside the accepted window")
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, err = io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
			if err != nil {
				abort(c, "unreadable body")
				return
			}
			_ = c.Request.Body.Close()
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !sig.Verify(pub, Message(c.Request.Method, c.Request.URL.Path, ts, body)) {
			abort(c, "signature does not match "+HeaderIdentity)
			return
		}
		if opts.Guard != nil {
			// A signature stays valid for MaxSkew on either side of its timestamp.
			if err := opts.Guard.Remember(c.Request.Context(), sig, 2*opts.MaxSkew); err != nil {
				if errors.Is(err, ErrReplayed) {
					abort(c, "signature already used")
					return
				}
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "replay check unavailable"})
				return
			}
		}
		c.Set(identityKey, pub)
		c.Next()
	}
}

// Identity returns the caller verified by Required.
func Identity(c *gin.Context) (solana.PublicKey, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return solana.PublicKey{}, false
	}
	pub, ok := v.(solana.PublicKey)
	return pub, ok
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

