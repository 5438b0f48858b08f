package core

import (
	"strconv"
	"time"

	"clamflow/internal/photo"
	"clamflow/pkg/domain"
)

// Service exposes the transactional processing workflow on top of a
// persistent store: receipt intake, lot assembly, processing, packaging,
// the shell weight ledger, and reference data maintenance.
type Service struct {
	store   domain.PersistentStore
	photos  photo.Store
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		clock:   ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(NewMemoryStore(engine), opts...)
}

// WithPhotoStore installs a backend for receipt photo uploads.
func WithPhotoStore(store photo.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.photos = store
		}
	}
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// PhotoStore returns the configured photo backend, or nil when absent.
func (s *Service) PhotoStore() photo.Store {
	return s.photos
}

func formatEntityID(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}
