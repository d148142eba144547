package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardswitch/card-switch/internal/domain/routing"
)

// RuleInvalidator drops the routing engine's cached rule set so new rules
// take effect immediately.
type RuleInvalidator interface {
	Invalidate()
}

// RoutingHandler handles HTTP requests for routing rule management
type RoutingHandler struct {
	store       routing.Store
	invalidator RuleInvalidator
	logger      *slog.Logger
}

// NewRoutingHandler creates a new routing rule handler
func NewRoutingHandler(logger *slog.Logger, store routing.Store, invalidator RuleInvalidator) *RoutingHandler {
	return &RoutingHandler{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
	}
}

// RuleRequest is the create/update payload. Omitted match fields are
// wildcards.
type RuleRequest struct {
	MTI            *string `json:"mti"`
	ProcessingCode *string `json:"processing_code"`
	AcquirerID     *string `json:"acquirer_id"`
	Destination    string  `json:"destination" binding:"required"`
	Priority       int     `json:"priority"`
	Active         *bool   `json:"active"`
}

// RuleResponse mirrors a stored routing rule.
type RuleResponse struct {
	ID             int64   `json:"id"`
	MTI            *string `json:"mti"`
	ProcessingCode *string `json:"processing_code"`
	AcquirerID     *string `json:"acquirer_id"`
	Destination    string  `json:"destination"`
	Priority       int     `json:"priority"`
	Active         bool    `json:"active"`
}

// List returns the active rule set.
func (h *RoutingHandler) List(c *gin.Context) {
	rules, err := h.store.FindActiveRules(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list routing rules", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		responses = append(responses, mapRuleToResponse(rule))
	}
	RespondOK(c, responses)
}

// Create stores a new routing rule and invalidates the engine cache.
func (h *RoutingHandler) Create(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rule := mapRequestToRule(&req)
	if err := h.store.Save(c.Request.Context(), rule); err != nil {
		h.logger.Error("Failed to save routing rule", "error", err)
		RespondInternalError(c)
		return
	}

	h.invalidator.Invalidate()
	RespondCreated(c, mapRuleToResponse(rule))
}

// Update rewrites an existing routing rule and invalidates the engine cache.
func (h *RoutingHandler) Update(c *gin.Context) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		h.logger.Error("Invalid routing rule ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid routing rule ID")
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rule := mapRequestToRule(&req)
	rule.ID = id
	if err := h.store.Update(c.Request.Context(), rule); err != nil {
		h.logger.Error("Failed to update routing rule", "id", id, "error", err)
		RespondNotFound(c, "Routing rule not found")
		return
	}

	h.invalidator.Invalidate()
	RespondOK(c, mapRuleToResponse(rule))
}

func mapRequestToRule(req *RuleRequest) *routing.Rule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &routing.Rule{
		MTI:            req.MTI,
		ProcessingCode: req.ProcessingCode,
		AcquirerID:     req.AcquirerID,
		Destination:    req.Destination,
		Priority:       req.Priority,
		Active:         active,
	}
}

func mapRuleToResponse(rule *routing.Rule) RuleResponse {
	return RuleResponse{
		ID:             rule.ID,
		MTI:            rule.MTI,
		ProcessingCode: rule.ProcessingCode,
		AcquirerID:     rule.AcquirerID,
		Destination:    rule.Destination,
		Priority:       rule.Priority,
		Active:         rule.Active,
	}
}
