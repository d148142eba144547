// Package transaction holds the switch's view of a single authorization,
// reversal or network-management event and its persistence contract.
package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines transaction processing states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusApproved   Status = "APPROVED"
	StatusDeclined   Status = "DECLINED"
	StatusReversed   Status = "REVERSED"
	StatusTimeout    Status = "TIMEOUT"
	StatusError      Status = "ERROR"
)

// Transaction is one switched event. Amounts are held in currency major
// units; the account number only ever appears as its one-way hash.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	TraceNumber    string          `json:"trace_number"`
	MTI            string          `json:"mti"`
	PANHash        string          `json:"pan_hash"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencyCode   string          `json:"currency_code"`
	ProcessingCode string          `json:"processing_code"`
	AcquirerID     string          `json:"acquirer_id"`
	TerminalID     string          `json:"terminal_id"`
	MerchantID     string          `json:"merchant_id"`
	ResponseCode   string          `json:"response_code"`
	AuthCode       string          `json:"auth_code"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	SettlementDate *time.Time      `json:"settlement_date,omitempty"`
}

// New creates a pending transaction for an inbound message.
func New(mti, traceNumber string) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		TraceNumber: traceNumber,
		MTI:         mti,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsPurchase reports whether the transaction carries the purchase MTI.
// Purchases are the only messages the journal enforces trace-number
// uniqueness on; reversals and echoes are retryable by nature.
func (t *Transaction) IsPurchase() bool {
	return t.MTI == "0200"
}

// IsReversal reports whether the transaction carries a reversal MTI.
func (t *Transaction) IsReversal() bool {
	return t.MTI == "0400" || t.MTI == "0420"
}

// IsNetworkManagement reports whether the transaction is a network
// management (echo) message.
func (t *Transaction) IsNetworkManagement() bool {
	return t.MTI == "0800"
}

// HashPAN derives the one-way account reference stored and logged in place
// of the primary account number.
func HashPAN(pan string) string {
	sum := sha256.Sum256([]byte(pan))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// MaskPAN renders an account number safe for audit output. Anything too
// short to mask meaningfully collapses to "****".
func MaskPAN(pan string) string {
	if len(pan) < 8 {
		return "****"
	}
	return pan[:4] + "****" + pan[len(pan)-4:]
}
