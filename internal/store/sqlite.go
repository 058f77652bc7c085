package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps values in a single kv table. Every write bumps the row
// version; Watch polls versions, so writes from other processes are seen too.
type SQLiteBackend struct {
	path   string
	db     *sql.DB
	poll   time.Duration
	logger *slog.Logger
}

func OpenSQLite(ctx context.Context, path string, poll time.Duration, logger *slog.Logger) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them; the watcher
	// and Set run on separate connections.
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		origin TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &SQLiteBackend{path: path, db: db, poll: poll, logger: loggerOr(logger)}, nil
}

// sqliteDSN enables WAL (one writer, many readers across processes) and a
// busy timeout so two contexts saving at once wait instead of failing.
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)"
}

func (b *SQLiteBackend) Area() Area   { return AreaLocal }
func (b *SQLiteBackend) Path() string { return b.path }
func (b *SQLiteBackend) Close() error { return b.db.Close() }

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte, origin string) error {
	_, err := b.db.ExecContext(ctx, `INSERT INTO kv(key, value, origin, version, updated_at_unixms)
		VALUES(?, ?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			origin = excluded.origin,
			version = kv.version + 1,
			updated_at_unixms = excluded.updated_at_unixms
		WHERE kv.value <> excluded.value`,
		key, string(value), origin, time.Now().UTC().UnixMilli())
	return err
}

type kvStamp struct {
	version int64
	origin  string
	value   string
}

func (b *SQLiteBackend) stamps(ctx context.Context) (map[string]kvStamp, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, value, origin, version FROM kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]kvStamp{}
	for rows.Next() {
		var k string
		var s kvStamp
		if err := rows.Scan(&k, &s.value, &s.origin, &s.version); err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, rows.Err()
}

// Watch polls the kv table and calls fn for every key whose version moved
// since the previous poll. Changes made before Watch was called are not replayed.
func (b *SQLiteBackend) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	last, err := b.stamps(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(b.poll)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			cur, err := b.stamps(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Warn("sqlite watch poll failed", "path", b.path, "error", err)
				}
				continue
			}
			for k, s := range cur {
				if prev, ok := last[k]; ok && prev.version == s.version {
					continue
				}
				fn(Change{Key: k, Area: AreaLocal, Origin: s.origin, Value: []byte(s.value)})
			}
			last = cur
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}
