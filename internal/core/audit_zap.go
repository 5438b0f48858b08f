package core

import (
	"context"

	"go.uber.org/zap"
)

// ZapAuditRecorder writes audit entries as structured zap log records.
type ZapAuditRecorder struct {
	logger *zap.Logger
}

// NewZapAuditRecorder wraps a zap logger as an AuditRecorder. A nil logger
// falls back to zap.NewNop.
func NewZapAuditRecorder(logger *zap.Logger) *ZapAuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditRecorder{logger: logger}
}

// Record implements AuditRecorder.
func (r *ZapAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("entity", string(entry.Entity)),
		zap.String("action", string(entry.Action)),
		zap.String("entity_id", entry.EntityID),
		zap.String("status", string(entry.Status)),
		zap.Duration("duration", entry.Duration),
		zap.Time("timestamp", entry.Timestamp),
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}
	if entry.Status == AuditStatusError {
		r.logger.Warn("audit", fields...)
		return
	}
	r.logger.Info("audit", fields...)
}

// ZapLogger adapts a zap sugared logger to the service Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger for use as the service logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) Debug(msg string, fields ...any) { l.sugar.Debugw(msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }
