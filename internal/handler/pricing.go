package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"negotiation/internal/service"
)

// PricingHandler handles HTTP requests for fare quotes.
type PricingHandler struct {
	negotiationService *service.NegotiationService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(negotiationService *service.NegotiationService) *PricingHandler {
	return &PricingHandler{negotiationService: negotiationService}
}

// QuoteRequest is the HTTP request body for a fare quote.
type QuoteRequest struct {
	TripID string `json:"trip_id"`
}

// QuoteResponse is the HTTP response for a fare quote.
type QuoteResponse struct {
	TripID        string  `json:"trip_id"`
	ReferenceFare float64 `json:"reference_fare"`
	Tier          string  `json:"tier"`
	Condition     string  `json:"condition"`
	OfferFloor    float64 `json:"offer_floor"`
	OfferCeiling  float64 `json:"offer_ceiling"`
}

// Quote handles POST /v1/fares/quote
func (h *PricingHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	quote, err := h.negotiationService.QuoteFare(c.Request.Context(), req.TripID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, QuoteResponse{
		TripID:        quote.TripID,
		ReferenceFare: quote.ReferenceFare,
		Tier:          string(quote.Tier),
		Condition:     string(quote.Condition),
		OfferFloor:    quote.OfferFloor,
		OfferCeiling:  quote.OfferCeiling,
	})
}
