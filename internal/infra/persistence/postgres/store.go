// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics while snapshotting state to a JSONB table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"clamflow/internal/infra/persistence/memory"
	"clamflow/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/clamflow?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sql.Open hook for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driver, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

type metaPayload struct {
	SchemaVersion int               `json:"schema_version"`
	Sequences     map[string]uint64 `json:"sequences"`
}

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), ensures the snapshot table exists, and hydrates the
// in-memory store from any existing snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, domain.StorageError{Op: "open postgres", Err: err}
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.StorageError{Op: "ping postgres", Err: err}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, domain.StorageError{Op: "ensure state table", Err: err}
	}
	ms := memory.NewStore(engine)
	s := &Store{Store: ms, db: db}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const metaBucket = "meta"

var dataBuckets = []string{"suppliers", "raw_materials", "lots", "processing_batches", "shell_weights", "packages", "product_grades"}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.StorageError{Op: "select state", Err: err}
	}
	defer func() { _ = rows.Close() }()
	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.StorageError{Op: "scan state", Err: err}
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.StorageError{Op: "iterate state", Err: err}
	}
	if len(payloads) == 0 {
		return nil
	}
	var snapshot memory.Snapshot
	decode := func(bucket string, target any) error {
		payload, ok := payloads[bucket]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return domain.StorageError{Op: fmt.Sprintf("decode %s", bucket), Err: err}
		}
		return nil
	}
	var meta metaPayload
	if err := decode(metaBucket, &meta); err != nil {
		return err
	}
	snapshot.SchemaVersion = meta.SchemaVersion
	snapshot.Sequences = meta.Sequences
	if err := decode("suppliers", &snapshot.Suppliers); err != nil {
		return err
	}
	if err := decode("raw_materials", &snapshot.Receipts); err != nil {
		return err
	}
	if err := decode("lots", &snapshot.Lots); err != nil {
		return err
	}
	if err := decode("processing_batches", &snapshot.Batches); err != nil {
		return err
	}
	if err := decode("shell_weights", &snapshot.ShellWeights); err != nil {
		return err
	}
	if err := decode("packages", &snapshot.Packages); err != nil {
		return err
	}
	if err := decode("product_grades", &snapshot.Grades); err != nil {
		return err
	}
	return s.ImportState(snapshot)
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	payloads := map[string]any{
		metaBucket:           metaPayload{SchemaVersion: snapshot.SchemaVersion, Sequences: snapshot.Sequences},
		"suppliers":          snapshot.Suppliers,
		"raw_materials":      snapshot.Receipts,
		"lots":               snapshot.Lots,
		"processing_batches": snapshot.Batches,
		"shell_weights":      snapshot.ShellWeights,
		"packages":           snapshot.Packages,
		"product_grades":     snapshot.Grades,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError{Op: "begin", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range append([]string{metaBucket}, dataBuckets...) {
		data, err := json.Marshal(payloads[bucket])
		if err != nil {
			retErr = domain.StorageError{Op: fmt.Sprintf("encode %s", bucket), Err: err}
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = domain.StorageError{Op: fmt.Sprintf("upsert %s", bucket), Err: err}
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.StorageError{Op: "commit", Err: err}
	}
	return nil
}

// RunInTransaction applies fn within a transaction, then snapshots to
// Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Reset deletes all persisted data and reinitializes with seed reference data.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state`); err != nil {
		return domain.StorageError{Op: "reset", Err: err}
	}
	if err := s.Store.Reset(ctx); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// DestroyState drops the snapshot table. Recovery path after a schema version
// conflict; the next open starts from seed data.
func DestroyState(ctx context.Context, dsn string) error {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return domain.StorageError{Op: "open postgres", Err: err}
	}
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS state`); err != nil {
		return domain.StorageError{Op: "drop state table", Err: err}
	}
	return nil
}
