// Package sqlite provides an embedded persistent store that snapshots the
// in-memory state to a single SQLite file after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"clamflow/internal/infra/persistence/memory"
	"clamflow/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "clamflow.db"

type metaPayload struct {
	SchemaVersion int               `json:"schema_version"`
	Sequences     map[string]uint64 `json:"sequences"`
}

// Store persists bucketed JSON snapshots of the traceability state. It reuses
// the in-memory store for transactional semantics and rule evaluation.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if absent) the store at the given path and
// hydrates it from any existing snapshot. A snapshot written by a newer
// schema version fails with domain.SchemaVersionError; the caller may then
// offer a destructive Reset.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, domain.StorageError{Op: "create dirs", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.StorageError{Op: "open sqlite", Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, domain.StorageError{Op: "create state table", Err: err}
	}
	ms := memory.NewStore(engine)
	s := &Store{Store: ms, db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.persist(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const metaBucket = "meta"

var dataBuckets = []string{"suppliers", "raw_materials", "lots", "processing_batches", "shell_weights", "packages", "product_grades"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
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
	snapshot, err := decodeSnapshot(payloads)
	if err != nil {
		return err
	}
	return s.ImportState(snapshot)
}

func decodeSnapshot(payloads map[string][]byte) (memory.Snapshot, error) {
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
		return memory.Snapshot{}, err
	}
	snapshot.SchemaVersion = meta.SchemaVersion
	snapshot.Sequences = meta.Sequences
	if err := decode("suppliers", &snapshot.Suppliers); err != nil {
		return memory.Snapshot{}, err
	}
	if err := decode("raw_materials", &snapshot.Receipts); err != nil {
		return memory.Snapshot{}, err
	}
	if err := decode("lots", &snapshot.Lots); err != nil {
		return memory.Snapshot{}, err
	}
	if err := decode("processing_batches", &snapshot.Batches); err != nil {
		return memory.Snapshot{}, err
	}
	if err := decode("shell_weights", &snapshot.ShellWeights); err != nil {
		return memory.Snapshot{}, err
	}
	if err := decode("packages", &snapshot.Packages); err != nil {
		return memory.Snapshot{}, err
	}
	if err := decode("product_grades", &snapshot.Grades); err != nil {
		return memory.Snapshot{}, err
	}
	return snapshot, nil
}

func encodeSnapshot(snapshot memory.Snapshot) (map[string][]byte, error) {
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
	encoded := make(map[string][]byte, len(payloads))
	for bucket, payload := range payloads {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.StorageError{Op: fmt.Sprintf("encode %s", bucket), Err: err}
		}
		encoded[bucket] = data
	}
	return encoded, nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	encoded, err := encodeSnapshot(s.ExportState())
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return domain.StorageError{Op: "begin", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range append([]string{metaBucket}, dataBuckets...) {
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, encoded[bucket]); err != nil {
			retErr = domain.StorageError{Op: fmt.Sprintf("upsert %s", bucket), Err: err}
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.StorageError{Op: "commit", Err: err}
	}
	return nil
}

// RunInTransaction applies fn within a transaction, then snapshots state to
// SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Reset deletes all persisted data and reinitializes with seed reference
// data. Used only as a recovery path from an unrecoverable version conflict.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state`); err != nil {
		return domain.StorageError{Op: "reset", Err: err}
	}
	if err := s.Store.Reset(ctx); err != nil {
		return err
	}
	return s.persist()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
