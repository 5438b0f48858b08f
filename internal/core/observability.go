package core

import (
	"context"
	"time"

	"clamflow/pkg/domain"
)

// Logger is the minimal structured logging surface used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus describes the outcome recorded for an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry captures a single audited service operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for completed service operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes operation outcomes and latencies.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span started by a Tracer.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

// Clock supplies the current time for audit timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the function's current time.
func (f ClockFunc) Now() time.Time { return f() }

// Option customizes a Service at construction time.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder installs an audit sink for mutating operations.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder installs a metrics sink for operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer wrapping each service operation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source used for audit timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// auditOperations maps operation names to the entity and action recorded in
// audit entries. Operations absent from the map are not audited.
var auditOperations = map[string]struct {
	entity domain.EntityType
	action domain.Action
}{
	"record_receipt":          {domain.EntityReceipt, domain.ActionCreate},
	"attach_receipt_photo":    {domain.EntityReceipt, domain.ActionUpdate},
	"assemble_lot":            {domain.EntityLot, domain.ActionCreate},
	"complete_lot":            {domain.EntityLot, domain.ActionUpdate},
	"submit_processing_batch": {domain.EntityProcessingBatch, domain.ActionCreate},
	"create_package":          {domain.EntityPackage, domain.ActionCreate},
	"record_shell_weight":     {domain.EntityShellWeight, domain.ActionCreate},
	"delete_shell_weight":     {domain.EntityShellWeight, domain.ActionDelete},
	"create_supplier":         {domain.EntitySupplier, domain.ActionCreate},
	"update_supplier":         {domain.EntitySupplier, domain.ActionUpdate},
	"delete_supplier":         {domain.EntitySupplier, domain.ActionDelete},
	"create_product_grade":    {domain.EntityProductGrade, domain.ActionCreate},
	"delete_product_grade":    {domain.EntityProductGrade, domain.ActionDelete},
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, status AuditStatus, errMsg string, duration time.Duration) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    status,
		Error:     errMsg,
		Duration:  duration,
		Timestamp: s.clock.Now().UTC(),
	})
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	s.recordAudit(ctx, operation, entityID, AuditStatusSuccess, "", duration)
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, err error, duration time.Duration) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.recordAudit(ctx, operation, entityID, AuditStatusError, msg, duration)
}

// instrument wraps an operation with tracing, metrics, and auditing. The
// returned finish function must be invoked exactly once with the operation's
// final error and the identifier of the affected entity.
func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(entityID string, err error)) {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(entityID string, err error) {
		duration := s.clock.Now().Sub(started)
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, duration)
		if err != nil {
			s.recordAuditError(ctx, operation, entityID, err, duration)
			s.logger.Error("operation failed", "operation", operation, "entity_id", entityID, "error", err.Error())
			return
		}
		s.recordAuditSuccess(ctx, operation, entityID, duration)
		s.logger.Debug("operation completed", "operation", operation, "entity_id", entityID)
	}
}
