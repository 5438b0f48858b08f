package core

import (
	"context"
	"errors"
	"fmt"
	"os"

	"clamflow/internal/infra/persistence/memory"
	"clamflow/internal/infra/persistence/mongo"
	"clamflow/internal/infra/persistence/postgres"
	"clamflow/internal/infra/persistence/sqlite"
	"clamflow/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageMongo    StorageDriver = "mongo"    // MongoDB server
)

// MemoryStore is the in-memory persistent store implementation.
type MemoryStore = memory.Store

// NewMemoryStore constructs an in-memory store with the given rules engine.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	return memory.NewStore(engine)
}

// NewSQLiteStore constructs a SQLite-backed persistent store using the
// provided file path (may be empty for default) and rules engine.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}

// NewPostgresStore constructs a Postgres-backed store from the provided DSN.
func NewPostgresStore(dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}

// NewMongoStore constructs a MongoDB-backed store from the provided URI and
// database name.
func NewMongoStore(ctx context.Context, uri, database string, engine *RulesEngine) (*mongo.Store, error) {
	return mongo.NewStore(ctx, uri, database, engine)
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	CLAMFLOW_STORAGE_DRIVER: memory|sqlite|postgres|mongo (default sqlite)
//	CLAMFLOW_SQLITE_PATH: path to sqlite file (default ./clamflow.db)
//	CLAMFLOW_POSTGRES_DSN: postgres DSN when driver=postgres
//	CLAMFLOW_MONGO_URI: mongodb connection URI when driver=mongo
//	CLAMFLOW_MONGO_DB: mongodb database name (default clamflow)
func OpenPersistentStore(ctx context.Context, engine *RulesEngine) (domain.PersistentStore, error) {
	driver := os.Getenv("CLAMFLOW_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("CLAMFLOW_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("CLAMFLOW_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	case StorageMongo:
		uri := os.Getenv("CLAMFLOW_MONGO_URI")
		database := os.Getenv("CLAMFLOW_MONGO_DB")
		if database == "" {
			database = "clamflow"
		}
		return mongo.NewStore(ctx, uri, database, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// DestroyPersistentState removes the configured backend's persisted snapshot
// entirely. Recovery path after a schema version conflict; the next open
// starts from seed data.
func DestroyPersistentState(ctx context.Context) error {
	driver := os.Getenv("CLAMFLOW_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return nil
	case StorageSQLite:
		path := os.Getenv("CLAMFLOW_SQLITE_PATH")
		if path == "" {
			path = sqlite.DefaultPath
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return domain.StorageError{Op: "remove sqlite file", Err: err}
		}
		return nil
	case StoragePostgres:
		return postgres.DestroyState(ctx, os.Getenv("CLAMFLOW_POSTGRES_DSN"))
	case StorageMongo:
		database := os.Getenv("CLAMFLOW_MONGO_DB")
		if database == "" {
			database = "clamflow"
		}
		return mongo.DestroyState(ctx, os.Getenv("CLAMFLOW_MONGO_URI"), database)
	default:
		return fmt.Errorf("unknown storage driver %s", driver)
	}
}
