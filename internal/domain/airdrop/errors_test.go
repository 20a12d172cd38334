package airdrop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("dial tcp: refused"), KindUnknown},
		{ErrInvalidRewardAmount, KindValidation},
		{ErrUnauthorized, KindUnauthorized},
		{ErrAirdropExpired, KindState},
		{errExhausted, KindState},
		{ErrTreasuryNotInitialized, KindNotFound},
		{ErrAlreadyClaimed, KindUniqueness},
		{fmt.Errorf("%w: commit rejected", ErrConflict), KindRetryable},
		{ErrInsufficientTreasuryFunds, KindResource},
		{fmt.Errorf("claim: %w", ErrArithmeticOverflow), KindFatal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}
