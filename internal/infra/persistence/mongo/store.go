// Package mongo provides a MongoDB-backed persistent store that mirrors the
// in-memory semantics. The whole state snapshot is written as a single
// document so every persist is atomic; a crash mid-write can never leave
// buckets from different generations behind.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clamflow/internal/infra/persistence/memory"
	"clamflow/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "clamflow"
	collectionName  = "state"
	stateDocumentID = "snapshot"
	connectTimeout  = 10 * time.Second
)

type stateDocument struct {
	ID      string `bson:"_id"`
	Payload []byte `bson:"payload"`
}

// Store persists state to MongoDB while reusing the in-memory implementation
// for transactions.
type Store struct {
	*memory.Store
	client *mongo.Client
	coll   *mongo.Collection
	mu     sync.Mutex
}

// NewStore connects to MongoDB using the provided URI and database name
// (falling back to local defaults) and hydrates the in-memory store from any
// existing snapshot.
func NewStore(ctx context.Context, uri, database string, engine *domain.RulesEngine) (*Store, error) {
	if uri == "" {
		uri = defaultURI
	}
	if database == "" {
		database = defaultDatabase
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, domain.StorageError{Op: "connect mongo", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, domain.StorageError{Op: "ping mongo", Err: err}
	}
	ms := memory.NewStore(engine)
	s := &Store{
		Store:  ms,
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}
	if err := s.load(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func encodeSnapshot(snapshot memory.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, domain.StorageError{Op: "encode snapshot", Err: err}
	}
	return payload, nil
}

func decodeSnapshot(payload []byte) (memory.Snapshot, error) {
	var snapshot memory.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return memory.Snapshot{}, domain.StorageError{Op: "decode snapshot", Err: err}
	}
	return snapshot, nil
}

func (s *Store) load(ctx context.Context) error {
	var doc stateDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: stateDocumentID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return domain.StorageError{Op: "find snapshot", Err: err}
	}
	snapshot, err := decodeSnapshot(doc.Payload)
	if err != nil {
		return err
	}
	return s.ImportState(snapshot)
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := encodeSnapshot(s.ExportState())
	if err != nil {
		return err
	}
	doc := stateDocument{ID: stateDocumentID, Payload: payload}
	replaceOpts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: stateDocumentID}}, doc, replaceOpts); err != nil {
		return domain.StorageError{Op: "upsert snapshot", Err: err}
	}
	return nil
}

// RunInTransaction applies fn within a transaction, then snapshots to
// MongoDB if successful.
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
	if err := s.coll.Drop(ctx); err != nil {
		return domain.StorageError{Op: "reset", Err: err}
	}
	if err := s.Store.Reset(ctx); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// DestroyState drops the snapshot collection. Recovery path after a schema
// version conflict; the next open starts from seed data.
func DestroyState(ctx context.Context, uri, database string) error {
	if uri == "" {
		uri = defaultURI
	}
	if database == "" {
		database = defaultDatabase
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return domain.StorageError{Op: "connect mongo", Err: err}
	}
	defer func() { _ = client.Disconnect(ctx) }()
	if err := client.Database(database).Collection(collectionName).Drop(ctx); err != nil {
		return domain.StorageError{Op: "drop state collection", Err: err}
	}
	return nil
}
