package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"negotiation/internal/domain"
	"negotiation/internal/service"
)

// NegotiationHandler handles HTTP requests for fare negotiations.
type NegotiationHandler struct {
	negotiationService *service.NegotiationService
}

// NewNegotiationHandler creates a new NegotiationHandler.
func NewNegotiationHandler(negotiationService *service.NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{negotiationService: negotiationService}
}

// OpenNegotiationRequest is the HTTP request body for opening a negotiation.
type OpenNegotiationRequest struct {
	TripID         string   `json:"trip_id"`
	InitiatorID    string   `json:"initiator_id"`
	ProposedAmount float64  `json:"proposed_amount"`
	CandidateIDs   []string `json:"candidate_ids,omitempty"`
}

// RespondRequest is the HTTP request body for a responder decision.
type RespondRequest struct {
	ResponderID   string  `json:"responder_id"`
	Decision      string  `json:"decision"` // ACCEPT, REJECT, COUNTER
	CounterAmount float64 `json:"counter_amount,omitempty"`
}

// CounterRoundRequest is the HTTP request body for round-2 decisions.
type CounterRoundRequest struct {
	InitiatorID string `json:"initiator_id"`
}

// NegotiationResponse is the HTTP representation of a negotiation record.
type NegotiationResponse struct {
	ID             string  `json:"id"`
	TripID         string  `json:"trip_id"`
	InitiatorID    string  `json:"initiator_id"`
	ResponderID    string  `json:"responder_id,omitempty"`
	ProposedAmount float64 `json:"proposed_amount"`
	ReferenceFare  float64 `json:"reference_fare"`
	CounterAmount  float64 `json:"counter_amount,omitempty"`
	Status         string  `json:"status"`
	Round          int     `json:"round"`

	CounteredNegotiationID string `json:"countered_negotiation_id,omitempty"`

	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
}

// OutcomeResponse reports whether the caller's transition won the race.
type OutcomeResponse struct {
	Applied     bool                `json:"applied"`
	Negotiation NegotiationResponse `json:"negotiation"`
}

// Open handles POST /v1/negotiations
func (h *NegotiationHandler) Open(c *gin.Context) {
	var req OpenNegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	record, err := h.negotiationService.Open(c.Request.Context(), service.OpenRequest{
		TripID:         req.TripID,
		InitiatorID:    req.InitiatorID,
		ProposedAmount: req.ProposedAmount,
		CandidateIDs:   req.CandidateIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toNegotiationResponse(record))
}

// Get handles GET /v1/negotiations/:id
func (h *NegotiationHandler) Get(c *gin.Context) {
	record, err := h.negotiationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toNegotiationResponse(record))
}

// ListByTrip handles GET /v1/trips/:id/negotiations
func (h *NegotiationHandler) ListByTrip(c *gin.Context) {
	records, err := h.negotiationService.ListByTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NegotiationResponse, 0, len(records))
	for _, r := range records {
		response = append(response, toNegotiationResponse(r))
	}

	respondJSON(c, http.StatusOK, response)
}

// Respond handles POST /v1/negotiations/:id/respond
func (h *NegotiationHandler) Respond(c *gin.Context) {
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	outcome, err := h.negotiationService.Respond(c.Request.Context(), service.RespondRequest{
		NegotiationID: c.Param("id"),
		ResponderID:   req.ResponderID,
		Decision:      domain.ResponderDecision(req.Decision),
		CounterAmount: req.CounterAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OutcomeResponse{
		Applied:     outcome.Applied,
		Negotiation: toNegotiationResponse(outcome.Record),
	})
}

// AcceptCounter handles POST /v1/negotiations/:id/accept-counter
func (h *NegotiationHandler) AcceptCounter(c *gin.Context) {
	h.resolveCounter(c, h.negotiationService.AcceptCounter)
}

// DeclineCounter handles POST /v1/negotiations/:id/decline-counter
func (h *NegotiationHandler) DeclineCounter(c *gin.Context) {
	h.resolveCounter(c, h.negotiationService.DeclineCounter)
}

func (h *NegotiationHandler) resolveCounter(c *gin.Context, resolve func(ctx context.Context, negotiationID, initiatorID string) (*domain.Negotiation, error)) {
	var req CounterRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	record, err := resolve(c.Request.Context(), c.Param("id"), req.InitiatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toNegotiationResponse(record))
}

// toNegotiationResponse converts a domain record to its HTTP form.
func toNegotiationResponse(n *domain.Negotiation) NegotiationResponse {
	response := NegotiationResponse{
		ID:                     n.ID,
		TripID:                 n.TripID,
		InitiatorID:            n.InitiatorID,
		ResponderID:            n.ResponderID,
		ProposedAmount:         n.ProposedAmount,
		ReferenceFare:          n.ReferenceFare,
		CounterAmount:          n.CounterAmount,
		Status:                 string(n.Status),
		Round:                  n.Round,
		CounteredNegotiationID: n.CounteredNegotiationID,
		CreatedAt:              n.CreatedAt.Format(time.RFC3339),
		ExpiresAt:              n.ExpiresAt.Format(time.RFC3339),
	}

	if !n.ResolvedAt.IsZero() {
		response.ResolvedAt = n.ResolvedAt.Format(time.RFC3339)
	}

	return response
}
