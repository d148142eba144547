// Package audit records every switched transaction: a masked record goes
// to the dedicated audit log, the persistent trail, and (when configured)
// the audit event topic. Raw account numbers never appear here.
package audit

import (
	"context"
	"time"
)

// Record is one masked audit entry for a switched transaction.
type Record struct {
	CorrelationID string    `json:"correlation_id" bson:"correlation_id"`
	MTI           string    `json:"mti" bson:"mti"`
	TraceNumber   string    `json:"trace_number" bson:"trace_number"`
	MaskedPAN     string    `json:"masked_pan,omitempty" bson:"masked_pan,omitempty"`
	Amount        string    `json:"amount,omitempty" bson:"amount,omitempty"`
	CurrencyCode  string    `json:"currency_code,omitempty" bson:"currency_code,omitempty"`
	ResponseCode  string    `json:"response_code,omitempty" bson:"response_code,omitempty"`
	Status        string    `json:"status" bson:"status"`
	Destination   string    `json:"destination,omitempty" bson:"destination,omitempty"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// TrailStore persists the audit trail.
type TrailStore interface {
	Append(ctx context.Context, record *Record) error
	FindByTimeRange(ctx context.Context, from, to time.Time, limit int64) ([]*Record, error)
}
