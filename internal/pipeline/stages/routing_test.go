package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardswitch/card-switch/internal/data/memory"
	"github.com/cardswitch/card-switch/internal/domain/iso"
	domainrouting "github.com/cardswitch/card-switch/internal/domain/routing"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
	"github.com/cardswitch/card-switch/internal/routing"
)

func newRoutingStage(rules ...*domainrouting.Rule) *RoutingStage {
	engine := routing.NewEngine(memory.NewRoutingStore(rules...), 0, newTestLogger())
	return NewRoutingStage(engine, newTestLogger())
}

func routingContext() *pipeline.Context {
	request := validPurchase()
	txc := pipeline.NewContext(request, nil)
	txc.Transaction = buildTransaction(request)
	return txc
}

func TestRoutingStage_SetsDestination(t *testing.T) {
	stage := newRoutingStage(&domainrouting.Rule{Destination: "issuer-primary", Priority: 1, Active: true})
	txc := routingContext()

	result := stage.Prepare(context.Background(), txc)

	assert.Equal(t, pipeline.OutcomePrepared, result.Outcome)
	assert.Equal(t, "issuer-primary", txc.Destination)
	assert.False(t, txc.Decided())
}

func TestRoutingStage_NoRouteDeclines91(t *testing.T) {
	stage := newRoutingStage() // empty rule set
	txc := routingContext()

	result := stage.Prepare(context.Background(), txc)

	assert.Equal(t, pipeline.OutcomePrepared, result.Outcome)
	assert.Empty(t, txc.Destination)
	assert.Equal(t, transaction.StatusDeclined, txc.Transaction.Status)
	assert.Equal(t, iso.RespSwitchInoperative, txc.Response.Field(iso.FieldResponseCode))
}

func TestRoutingStage_SkipsWhenDecided(t *testing.T) {
	stage := newRoutingStage(&domainrouting.Rule{Destination: "issuer-primary", Priority: 1, Active: true})
	txc := routingContext()
	txc.Respond(pipeline.ErrorResponse(txc.Request, iso.RespDecline))

	result := stage.Prepare(context.Background(), txc)

	assert.Equal(t, pipeline.OutcomePrepared, result.Outcome)
	assert.Empty(t, txc.Destination)
}
