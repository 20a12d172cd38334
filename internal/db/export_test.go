package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Truncate empties every table between test cases.
func (s *Store) Truncate(t *testing.T) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(), `TRUNCATE ledger_account, audit_log`)
	require.NoError(t, err)
}
