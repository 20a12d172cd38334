package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"geodrop/internal/ledger"
	"geodrop/internal/observability/metrics"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger_account (
    key        TEXT PRIMARY KEY,
    lamports   BIGINT NOT NULL DEFAULT 0 CHECK (lamports >= 0),
    data       BYTEA NOT NULL DEFAULT ''::bytea,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS audit_log (
    event_id     TEXT PRIMARY KEY,
    event_type   TEXT NOT NULL,
    actor        TEXT NOT NULL,
    airdrop_id   BIGINT NOT NULL DEFAULT 0,
    amount       BIGINT NOT NULL DEFAULT 0,
    claims_count INTEGER NOT NULL DEFAULT 0,
    occurred_at  TIMESTAMPTZ NOT NULL,
    recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS audit_log_airdrop_idx ON audit_log (airdrop_id, occurred_at);
`

// Postgres error codes that mean the transaction lost a race and may be resubmitted.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeNumericOutOfRange    = "22003"
)

// Store wraps a pgx connection pool. It is both a ledger backend and the
// audit log sink of the consumer.
type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Ledger = (*Store)(nil)

// AuditLog holds data for audit_log insertions.
type AuditLog struct {
	EventID     string
	EventType   string
	Actor       string
	AirdropID   uint64
	Amount      uint64
	ClaimsCount uint16
	OccurredAt  time.Time
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases underlying connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema guarantees required tables exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("ensure_schema", time.Since(start)) }()
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// RunInTx executes fn within a Postgres transaction. Row locks taken by the
// ledger statements serialize transactions touching the same accounts.
func (s *Store) RunInTx(ctx context.Context, fn func(ledger.Tx) error) error {
	start := time.Now()
	err := s.runInPgTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
	err = translate(err)
	metrics.ObserveLedgerTx("postgres", outcome(err), time.Since(start))
	return err
}

func (s *Store) runInPgTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Get reads a committed account.
func (s *Store) Get(ctx context.Context, key string) (ledger.Account, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("get_account", time.Since(start)) }()
	return getAccount(ctx, s.pool, key, false)
}

// Credit mints amount into key.
func (s *Store) Credit(ctx context.Context, key string, amount uint64) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("credit_account", time.Since(start)) }()
	return translate(credit(ctx, s.pool, key, amount))
}

// InsertAuditLog stores an audit event. Redelivered events are ignored.
func (s *Store) InsertAuditLog(ctx context.Context, entry AuditLog) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("insert_audit_log", time.Since(start)) }()
	airdropID, err := toInt64(entry.AirdropID)
	if err != nil {
		return fmt.Errorf("airdrop id: %w", err)
	}
	amount, err := toInt64(entry.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO audit_log (event_id, event_type, actor, airdrop_id, amount, claims_count, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (event_id) DO NOTHING
    `, entry.EventID, entry.EventType, entry.Actor, airdropID, amount, int32(entry.ClaimsCount), entry.OccurredAt)
	return err
}

// ListAuditLog returns the audit trail of one airdrop, oldest first.
func (s *Store) ListAuditLog(ctx context.Context, airdropID uint64, limit int) ([]AuditLog, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("list_audit_log", time.Since(start)) }()
	id, err := toInt64(airdropID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
        SELECT event_id, event_type, actor, airdrop_id, amount, claims_count, occurred_at
        FROM audit_log
        WHERE airdrop_id = $1
        ORDER BY occurred_at, event_id
        LIMIT $2
    `, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AuditLog
	for rows.Next() {
		var (
			entry          AuditLog
			dropID, amount int64
			claimsCount    int32
		)
		if err := rows.Scan(&entry.EventID, &entry.EventType, &entry.Actor, &dropID, &amount, &claimsCount, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entry.AirdropID = uint64(dropID)
		entry.Amount = uint64(amount)
		entry.ClaimsCount = uint16(claimsCount)
		items = append(items, entry)
	}
	return items, rows.Err()
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", ledger.ErrConflict, pgErr.Message)
		case codeNumericOutOfRange:
			return fmt.Errorf("%w: %s", ledger.ErrOverflow, pgErr.Message)
		}
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "commit"
	case errors.Is(err, ledger.ErrConflict):
		return "conflict"
	default:
		return "rollback"
	}
}

func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, ledger.ErrOverflow
	}
	return int64(v), nil
}
