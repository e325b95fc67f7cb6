package handler

import (
	"log/slog"
	"net/http"

	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type DonorHandler struct {
	donors ports.DonorService
	logger *slog.Logger
}

func NewDonorHandler(donors ports.DonorService, logger *slog.Logger) *DonorHandler {
	return &DonorHandler{donors: donors, logger: logger}
}

type donorDetailsBody struct {
	Age        *int             `json:"age"`
	Weight     *float64         `json:"weight"`
	BloodGroup domain.BloodType `json:"bloodGroup"`
	HealthInfo []string         `json:"healthInfo"`
}

type donorDetailsResponse struct {
	Message string               `json:"message"`
	User    *domain.DonorDetails `json:"user"`
}

func (h *DonorHandler) Details(w http.ResponseWriter, r *http.Request) {
	d, err := h.donors.Details(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DonorHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var body donorDetailsBody
	if err := decodeJSON(r, &body, false); err != nil {
		WriteError(w, err)
		return
	}
	if body.Age == nil || body.Weight == nil || body.BloodGroup == "" || body.HealthInfo == nil {
		WriteError(w, domain.NewError(domain.CodeValidation, "missing required fields: age, weight, bloodGroup, healthInfo"))
		return
	}

	donorID := middleware.UserID(r.Context())
	d, err := h.donors.UpdateDetails(r.Context(), donorID, domain.DonorProfile{
		Age:        *body.Age,
		Weight:     *body.Weight,
		BloodGroup: body.BloodGroup,
		HealthInfo: body.HealthInfo,
	})
	if err != nil {
		logFailure(r, h.logger, "update donor details failed", err, "donor_id", donorID)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donorDetailsResponse{Message: "Donor details updated successfully.", User: d})
}
