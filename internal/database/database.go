package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrRestoreInProgress is returned by every mutating call while the backup
// engine holds the database for a restore. Transient: callers retry once
// the restore finishes. Read-only calls are unaffected.
var ErrRestoreInProgress = errors.New("restore in progress, database is read-only")

// errNotConnected is returned while the pool is quiesced for a snapshot.
var errNotConnected = errors.New("database is not connected")

// Gate reports whether maintenance mode is active. The backup engine's
// state component satisfies it.
type Gate interface {
	MaintenanceActive() bool
}

// DB is the data-access layer over the single-file SQLite database.
// The backup engine quiesces and reconnects it around file copies and swaps.
type DB struct {
	path string
	gate Gate

	mu   sync.RWMutex
	pool *sql.DB
}

// Open connects to the database file at path. gate is consulted before
// every mutating call.
func Open(path string, gate Gate) (*DB, error) {
	d := &DB{path: path, gate: gate}
	if err := d.connect(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DB) connect() error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", d.path)
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database %q: %w", d.path, err)
	}
	d.pool = pool
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS stores (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	store_code TEXT UNIQUE,
	name TEXT NOT NULL,
	city TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP
)`

// Init creates the schema if it does not exist yet.
func (d *DB) Init(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pool == nil {
		return errNotConnected
	}
	if _, err := d.pool.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Quiesce closes the connection pool so no write is in flight and the WAL is
// checkpointed while the backup engine copies or swaps the database file.
func (d *DB) Quiesce() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool == nil {
		return nil
	}
	if err := d.pool.Close(); err != nil {
		return fmt.Errorf("close database connections: %w", err)
	}
	d.pool = nil
	return nil
}

// Reconnect reopens the pool after a quiesce.
func (d *DB) Reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		return nil
	}
	return d.connect()
}

// Close shuts the pool down for good.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool == nil {
		return nil
	}
	err := d.pool.Close()
	d.pool = nil
	return err
}

// Store is one tracked retail location, the representative business entity
// counted into backup metadata.
type Store struct {
	ID        int64  `json:"id"`
	Code      string `json:"storeCode,omitempty"`
	Name      string `json:"name"`
	City      string `json:"city,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// CountStores returns the number of tracked stores. Used by the backup
// engine as informational metadata.
func (d *DB) CountStores(ctx context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pool == nil {
		return 0, errNotConnected
	}
	var count int64
	if err := d.pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return count, nil
}

// CreateStore inserts a store. Fails fast while a restore is in progress.
func (d *DB) CreateStore(ctx context.Context, st Store) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.gate.MaintenanceActive() {
		return 0, ErrRestoreInProgress
	}
	if d.pool == nil {
		return 0, errNotConnected
	}
	if st.Status == "" {
		st.Status = "active"
	}
	res, err := d.pool.ExecContext(ctx,
		`INSERT INTO stores (store_code, name, city, status) VALUES (?, ?, ?, ?)`,
		st.Code, st.Name, st.City, st.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("create store %q: %w", st.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create store %q: %w", st.Name, err)
	}
	return id, nil
}

// UpdateStore updates a store's mutable fields. Fails fast while a restore
// is in progress.
func (d *DB) UpdateStore(ctx context.Context, st Store) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.gate.MaintenanceActive() {
		return ErrRestoreInProgress
	}
	if d.pool == nil {
		return errNotConnected
	}
	res, err := d.pool.ExecContext(ctx,
		`UPDATE stores SET store_code = ?, name = ?, city = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		st.Code, st.Name, st.City, st.Status, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update store %d: %w", st.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update store %d: %w", st.ID, sql.ErrNoRows)
	}
	return nil
}

// DeleteStore removes a store. Fails fast while a restore is in progress.
func (d *DB) DeleteStore(ctx context.Context, id int64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.gate.MaintenanceActive() {
		return ErrRestoreInProgress
	}
	if d.pool == nil {
		return errNotConnected
	}
	if _, err := d.pool.ExecContext(ctx, `DELETE FROM stores WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete store %d: %w", id, err)
	}
	return nil
}

// GetStore fetches one store by id. Read-only, never gated.
func (d *DB) GetStore(ctx context.Context, id int64) (*Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pool == nil {
		return nil, errNotConnected
	}
	var st Store
	err := d.pool.QueryRowContext(ctx,
		`SELECT id, COALESCE(store_code, ''), name, COALESCE(city, ''), status, created_at, updated_at
		 FROM stores WHERE id = ?`, id,
	).Scan(&st.ID, &st.Code, &st.Name, &st.City, &st.Status, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get store %d: %w", id, err)
	}
	return &st, nil
}

// ListStores returns all stores ordered by name. Read-only, never gated.
func (d *DB) ListStores(ctx context.Context) ([]Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pool == nil {
		return nil, errNotConnected
	}
	rows, err := d.pool.QueryContext(ctx,
		`SELECT id, COALESCE(store_code, ''), name, COALESCE(city, ''), status, created_at, updated_at
		 FROM stores ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []Store
	for rows.Next() {
		var st Store
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.City, &st.Status, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan store row: %w", err)
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}
