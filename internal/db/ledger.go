package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"geodrop/internal/ledger"
	"geodrop/internal/observability/metrics"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, key string) (ledger.Account, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("tx_get_account", time.Since(start)) }()
	return getAccount(ctx, t.tx, key, true)
}

func (t *pgTx) Create(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("tx_create_account", time.Since(start)) }()
	if data == nil {
		data = []byte{}
	}
	tag, err := t.tx.Exec(ctx, `
        INSERT INTO ledger_account (key, data)
        VALUES ($1, $2)
        ON CONFLICT (key) DO NOTHING
    `, key, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrExists
	}
	return nil
}

func (t *pgTx) Update(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("tx_update_account", time.Since(start)) }()
	if data == nil {
		data = []byte{}
	}
	tag, err := t.tx.Exec(ctx, `
        UPDATE ledger_account
        SET data = $2, updated_at = NOW()
        WHERE key = $1
    `, key, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (t *pgTx) Transfer(ctx context.Context, from, to string, amount uint64) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("tx_transfer", time.Since(start)) }()
	value, err := toInt64(amount)
	if err != nil {
		return err
	}
	if from == to || amount == 0 {
		src, err := getAccount(ctx, t.tx, from, true)
		if errors.Is(err, ledger.ErrNotFound) || (err == nil && src.Lamports < amount) {
			return ledger.ErrInsufficientFunds
		}
		return err
	}
	tag, err := t.tx.Exec(ctx, `
        UPDATE ledger_account
        SET lamports = lamports - $2, updated_at = NOW()
        WHERE key = $1 AND lamports >= $2
    `, from, value)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientFunds
	}
	return translate(credit(ctx, t.tx, to, amount))
}

func getAccount(ctx context.Context, q querier, key string, lock bool) (ledger.Account, error) {
	sql := `SELECT lamports, data FROM ledger_account WHERE key = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var (
		lamports int64
		data     []byte
	)
	if err := q.QueryRow(ctx, sql, key).Scan(&lamports, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, ledger.ErrNotFound
		}
		return ledger.Account{}, err
	}
	return ledger.Account{Key: key, Lamports: uint64(lamports), Data: data}, nil
}

func credit(ctx context.Context, q querier, key string, amount uint64) error {
	value, err := toInt64(amount)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
        INSERT INTO ledger_account (key, lamports)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE
        SET lamports = ledger_account.lamports + EXCLUDED.lamports, updated_at = NOW()
    `, key, value)
	return err
}
