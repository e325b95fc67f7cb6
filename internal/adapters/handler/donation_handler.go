package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type DonationHandler struct {
	rewards ports.RewardService
	logger  *slog.Logger
}

func NewDonationHandler(rewards ports.RewardService, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{rewards: rewards, logger: logger}
}

type completeBody struct {
	// ArrivalTime is how many minutes the donor took to arrive.
	ArrivalTime *int `json:"arrivalTime"`
}

type completeResponse struct {
	Message string `json:"message"`
	*domain.CompletionResult
}

func (h *DonationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var body completeBody
	if err := decodeJSON(r, &body, true); err != nil {
		WriteError(w, err)
		return
	}

	donorID := middleware.UserID(r.Context())
	requestID := chi.URLParam(r, "requestId")
	res, err := h.rewards.CompleteDonation(r.Context(), donorID, requestID, body.ArrivalTime)
	if err != nil {
		logFailure(r, h.logger, "complete donation failed", err, "donor_id", donorID, "blood_request_id", requestID)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{Message: "Donation recorded successfully!", CompletionResult: res})
}

func (h *DonationHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	summary, err := h.rewards.Rewards(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
