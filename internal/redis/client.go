package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"geodrop/internal/ledger"
	"geodrop/internal/observability/metrics"
	"geodrop/scripts/lua"
)

// Commit script statuses.
const (
	statusOK       = "OK"
	statusExists   = "EXISTS"
	statusConflict = "CONFLICT"
)

// Client wraps go-redis and stores ledger accounts as hashes. Transactions are
// staged in memory and committed by a single Lua script, so a commit is
// atomic and is rejected if another commit touched the same accounts first.
type Client struct {
	rdb          *goRedis.Client
	commitScript *goRedis.Script
}

var _ ledger.Ledger = (*Client)(nil)

// New creates a Redis client and verifies connectivity.
func New(addr string) (*Client, error) {
	rdb := goRedis.NewClient(&goRedis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewFromClient(rdb), nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *goRedis.Client) *Client {
	return &Client{
		rdb:          rdb,
		commitScript: goRedis.NewScript(lua.CommitScript),
	}
}

// Close shuts down the underlying Redis client.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AccountKey returns the Redis hash holding ledger account key. The hash tag
// keeps every account in one cluster slot so the commit script may touch any of them.
func (c *Client) AccountKey(key string) string {
	return "{geodrop}:acct:" + key
}

// SetIfAbsent stores key with ttl unless it exists and reports whether it was set.
func (c *Client) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("set_if_absent", time.Since(start)) }()
	return c.rdb.SetNX(ctx, "{geodrop}:"+key, 1, ttl).Result()
}

// RunInTx stages fn's reads and writes and commits them with the Lua script.
func (c *Client) RunInTx(ctx context.Context, fn func(ledger.Tx) error) error {
	start := time.Now()
	t := &redisTx{client: c, entries: make(map[string]*entry)}
	err := fn(t)
	if err == nil {
		err = c.commit(ctx, t)
	}
	metrics.ObserveLedgerTx("redis", outcome(err), time.Since(start))
	return err
}

// Get reads a committed account.
func (c *Client) Get(ctx context.Context, key string) (ledger.Account, error) {
	e, err := c.load(ctx, key)
	if err != nil {
		return ledger.Account{}, err
	}
	if !e.exists {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return e.account(key), nil
}

// creditAttempts bounds retries of Credit against concurrent commits.
const creditAttempts = 8

// Credit mints amount into key and bumps its version so that in-flight
// transactions that read the account are rejected. It goes through the commit
// script so the balance is checked in uint64 before anything is written.
func (c *Client) Credit(ctx context.Context, key string, amount uint64) error {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("credit", time.Since(start)) }()
	var err error
	for attempt := 0; attempt < creditAttempts; attempt++ {
		t := &redisTx{client: c, entries: make(map[string]*entry)}
		var e *entry
		if e, err = t.load(ctx, key); err != nil {
			return err
		}
		if e.lamports > math.MaxUint64-amount {
			return fmt.Errorf("credit %s: %w", key, ledger.ErrOverflow)
		}
		e.lamports += amount
		e.touch()
		if err = c.commit(ctx, t); !isConflict(err) {
			return err
		}
	}
	return fmt.Errorf("credit %s after %d attempts: %w", key, creditAttempts, err)
}

// RunCommitScript executes the commit script atomically.
func (c *Client) RunCommitScript(ctx context.Context, keys []string, args ...interface{}) ([]interface{}, error) {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("run_commit_script", time.Since(start)) }()
	result, err := c.commitScript.Run(ctx, c.rdb, keys, args...).Result()
	if err != nil {
		return nil, err
	}
	arr, ok := result.([]interface{})
	if !ok || len(arr) != 2 {
		return nil, fmt.Errorf("unexpected Lua script response: %v", result)
	}
	return arr, nil
}

func (c *Client) commit(ctx context.Context, t *redisTx) error {
	if !t.dirty() {
		return nil
	}
	keys := make([]string, 0, len(t.order))
	args := make([]interface{}, 0, len(t.order)*5)
	for _, key := range t.order {
		e := t.entries[key]
		next, err := nextVersion(e.version)
		if err != nil {
			return fmt.Errorf("account %s: %w", key, err)
		}
		op := string(e.op)
		if e.op == opRead {
			op = "r"
		}
		keys = append(keys, c.AccountKey(key))
		args = append(args, op, e.version, next, strconv.FormatUint(e.lamports, 10), e.data)
	}

	resp, err := c.RunCommitScript(ctx, keys, args...)
	if err != nil {
		return err
	}
	status := fmt.Sprintf("%v", resp[0])
	switch status {
	case statusOK:
		return nil
	case statusExists:
		return fmt.Errorf("%w: %w: %v", ledger.ErrConflict, ledger.ErrExists, resp[1])
	case statusConflict:
		return fmt.Errorf("%w: %v", ledger.ErrConflict, resp[1])
	default:
		return fmt.Errorf("unexpected commit status %q", status)
	}
}

func (c *Client) load(ctx context.Context, key string) (*entry, error) {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("load_account", time.Since(start)) }()
	fields, err := c.rdb.HGetAll(ctx, c.AccountKey(key)).Result()
	if err != nil {
		return nil, err
	}
	e := &entry{version: "0"}
	if len(fields) == 0 {
		return e, nil
	}
	e.exists = true
	if v, ok := fields["ver"]; ok {
		e.version = v
	}
	if raw, ok := fields["lamports"]; ok && raw != "" {
		lamports, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("account %s: lamports %q: %w", key, raw, err)
		}
		e.lamports = lamports
	}
	if data, ok := fields["data"]; ok {
		e.data = []byte(data)
	}
	return e, nil
}

func nextVersion(v string) (string, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return "", fmt.Errorf("version %q: %w", v, err)
	}
	return strconv.FormatUint(n+1, 10), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "commit"
	case isConflict(err):
		return "conflict"
	default:
		return "rollback"
	}
}
