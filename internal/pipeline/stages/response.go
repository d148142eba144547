package stages

import (
	"context"
	"log/slog"

	"github.com/cardswitch/card-switch/internal/pipeline"
)

// ResponseStage delivers the response through the exact origin connection
// handle carried in the context — never broadcast, never another
// connection. Missing handle or response aborts delivery with a log entry;
// the pipeline itself is unaffected. Delivery is fire-and-forget:
// transport-level acknowledgement belongs to the connection layer.
type ResponseStage struct {
	logger *slog.Logger
}

// NewResponseStage creates the response delivery stage.
func NewResponseStage(logger *slog.Logger) *ResponseStage {
	return &ResponseStage{logger: logger}
}

func (s *ResponseStage) Name() string { return "response-delivery" }

func (s *ResponseStage) Prepare(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	if txc.Source == nil || txc.Response == nil {
		s.logger.Error("cannot deliver response",
			"correlation_id", txc.CorrelationID,
			"source_present", txc.Source != nil,
			"response_present", txc.Response != nil,
		)
		return pipeline.AbortedNoJoin()
	}

	if err := txc.Source.Send(ctx, txc.Response); err != nil {
		s.logger.Error("failed to send response to origin connection",
			"correlation_id", txc.CorrelationID,
			"source", txc.Source.ID(),
			"error", err,
		)
		return pipeline.AbortedNoJoin()
	}

	s.logger.Debug("response delivered",
		"correlation_id", txc.CorrelationID,
		"source", txc.Source.ID(),
		"response_mti", txc.Response.MTI,
	)
	return pipeline.PreparedNoJoin()
}

func (s *ResponseStage) Commit(ctx context.Context, txc *pipeline.Context) {}
func (s *ResponseStage) Abort(ctx context.Context, txc *pipeline.Context)  {}
