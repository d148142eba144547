package audit

import (
	"context"
	"log/slog"
	"time"
)

// EventPublisher publishes audit events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Recorder fans an audit record out to the audit log, the trail store and
// the event publisher. Every sink is best-effort: audit problems are
// logged and never fail the transaction that triggered them. Both trail
// and publisher may be nil (disabled).
type Recorder struct {
	trail     TrailStore
	publisher EventPublisher
	auditLog  *slog.Logger
	logger    *slog.Logger
}

// NewRecorder creates a recorder over the given sinks.
func NewRecorder(trail TrailStore, publisher EventPublisher, auditLog, logger *slog.Logger) *Recorder {
	return &Recorder{
		trail:     trail,
		publisher: publisher,
		auditLog:  auditLog,
		logger:    logger,
	}
}

// RecordTransaction emits the audit record for one switched transaction.
func (r *Recorder) RecordTransaction(ctx context.Context, record *Record) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	r.auditLog.Info("TXN",
		"correlation_id", record.CorrelationID,
		"mti", record.MTI,
		"trace_number", record.TraceNumber,
		"masked_pan", record.MaskedPAN,
		"amount", record.Amount,
		"response_code", record.ResponseCode,
		"status", record.Status,
		"destination", record.Destination,
	)

	if r.trail != nil {
		if err := r.trail.Append(ctx, record); err != nil {
			r.logger.Error("failed to append audit record to trail",
				"correlation_id", record.CorrelationID,
				"error", err,
			)
		}
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, record.TraceNumber, record); err != nil {
			r.logger.Error("failed to publish audit event",
				"correlation_id", record.CorrelationID,
				"error", err,
			)
		}
	}
}

// RecordSecurityEvent logs a security-relevant event on the audit channel.
func (r *Recorder) RecordSecurityEvent(eventType, details, correlationID string) {
	r.auditLog.Warn("SECURITY",
		"event_type", eventType,
		"details", details,
		"correlation_id", correlationID,
	)
}

// RecordSystemEvent logs an operational event on the audit channel.
func (r *Recorder) RecordSystemEvent(eventType, details string) {
	r.auditLog.Info("SYSTEM",
		"event_type", eventType,
		"details", details,
	)
}
