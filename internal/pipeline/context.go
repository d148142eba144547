// Package pipeline implements the two-phase transaction pipeline at the
// heart of the switch: an ordered chain of stages sharing one per-run
// context, driven through prepare and then commit or abort.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

// Context is the mutable per-transaction state bag carried through every
// stage. One instance exists per pipeline run; it is owned exclusively by
// the worker driving that run and discarded afterwards.
type Context struct {
	CorrelationID string

	// Request is the decoded inbound message. Set before the run starts.
	Request *iso.Message

	// Source is the origin connection handle the response must go back
	// through. Opaque to every stage except response delivery.
	Source iso.Source

	// Transaction is derived from Request by the audit stage.
	Transaction *transaction.Transaction

	// Response is whatever the pipeline will answer with. Any stage may
	// set it; once a stage calls Respond the business outcome is final
	// and later business stages skip their work.
	Response *iso.Message

	// Destination is the downstream system selected by the routing stage.
	Destination string

	decided bool
}

// NewContext creates the context for one inbound message.
func NewContext(request *iso.Message, source iso.Source) *Context {
	return &Context{
		CorrelationID: uuid.New().String(),
		Request:       request,
		Source:        source,
	}
}

// Respond fixes the business outcome of the run. Later business stages
// observe Decided and pass through without acting.
func (c *Context) Respond(response *iso.Message) {
	c.Response = response
	c.decided = true
}

// Decided reports whether a stage has already fixed the final response.
func (c *Context) Decided() bool {
	return c.decided
}
