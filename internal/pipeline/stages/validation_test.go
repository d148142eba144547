package stages

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func validPurchase() *iso.Message {
	msg := iso.NewMessage(iso.MTIPurchase)
	msg.Set(iso.FieldPAN, "4111111111111111").
		Set(iso.FieldAmount, "150000").
		Set(iso.FieldTraceNumber, "123456")
	return msg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		message      func() *iso.Message
		wantValid    bool
		responseCode string
	}{
		{
			name:      "valid purchase",
			message:   validPurchase,
			wantValid: true,
		},
		{
			name: "missing PAN",
			message: func() *iso.Message {
				m := validPurchase()
				m.Unset(iso.FieldPAN)
				return m
			},
			responseCode: iso.RespFormatError,
		},
		{
			name: "missing amount",
			message: func() *iso.Message {
				m := validPurchase()
				m.Unset(iso.FieldAmount)
				return m
			},
			responseCode: iso.RespFormatError,
		},
		{
			name: "network management without amount is valid",
			message: func() *iso.Message {
				m := iso.NewMessage(iso.MTINetworkMgmt)
				m.Set(iso.FieldPAN, "4111111111111111").
					Set(iso.FieldTraceNumber, "000001")
				return m
			},
			wantValid: true,
		},
		{
			name: "missing trace number",
			message: func() *iso.Message {
				m := validPurchase()
				m.Unset(iso.FieldTraceNumber)
				return m
			},
			responseCode: iso.RespFormatError,
		},
		{
			name: "PAN too short",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldPAN, "411111111111") // 12 digits
				return m
			},
			responseCode: iso.RespFormatError,
		},
		{
			name: "PAN too long",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldPAN, "41111111111111111111") // 20 digits
				return m
			},
			responseCode: iso.RespFormatError,
		},
		{
			name: "PAN at 13 digits is valid",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldPAN, "4111111111111")
				return m
			},
			wantValid: true,
		},
		{
			name: "PAN at 19 digits is valid",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldPAN, "4111111111111111111")
				return m
			},
			wantValid: true,
		},
		{
			name: "non-numeric amount",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldAmount, "12AB00")
				return m
			},
			responseCode: iso.RespFormatError,
		},
		{
			name: "zero amount",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldAmount, "000000")
				return m
			},
			responseCode: iso.RespInvalidAmount,
		},
		{
			name: "negative amount",
			message: func() *iso.Message {
				m := validPurchase()
				m.Set(iso.FieldAmount, "-100")
				return m
			},
			responseCode: iso.RespInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.message())
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				assert.Equal(t, tt.responseCode, result.ResponseCode)
			}
		})
	}
}

func TestValidationStage_DeclineIsNotAnAbort(t *testing.T) {
	stage := NewValidationStage(newTestLogger())

	request := validPurchase()
	request.Unset(iso.FieldPAN)

	txc := pipeline.NewContext(request, nil)
	txc.Transaction = transaction.New(request.MTI, request.Field(iso.FieldTraceNumber))

	result := stage.Prepare(context.Background(), txc)

	// A failed check completes the prepare phase normally.
	assert.Equal(t, pipeline.OutcomePrepared, result.Outcome)
	assert.True(t, result.ReadOnly)

	assert.True(t, txc.Decided())
	assert.Equal(t, iso.RespFormatError, txc.Response.Field(iso.FieldResponseCode))
	assert.Equal(t, transaction.StatusDeclined, txc.Transaction.Status)
}

func TestValidationStage_SkipsWhenDecided(t *testing.T) {
	stage := NewValidationStage(newTestLogger())

	request := validPurchase()
	request.Unset(iso.FieldPAN) // would fail validation if checked

	txc := pipeline.NewContext(request, nil)
	txc.Respond(pipeline.ErrorResponse(request, iso.RespDecline))

	result := stage.Prepare(context.Background(), txc)

	assert.Equal(t, pipeline.OutcomePrepared, result.Outcome)
	// The earlier decision stands.
	assert.Equal(t, iso.RespDecline, txc.Response.Field(iso.FieldResponseCode))
}
