package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type RequestHandler struct {
	requests ports.RequestService
	logger   *slog.Logger
}

func NewRequestHandler(requests ports.RequestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, logger: logger}
}

type createRequestBody struct {
	BloodType       domain.BloodType `json:"bloodType"`
	HospitalName    string           `json:"hospitalName"`
	LocationDetails string           `json:"locationDetails"`
	TimeLimit       *time.Time       `json:"timeLimit"`
	Urgency         domain.Urgency   `json:"urgency"`
	AdditionalInfo  string           `json:"additionalInfo"`
}

type acceptResponse struct {
	Message string               `json:"message"`
	Request *domain.BloodRequest `json:"request"`
}

type cancelResponse struct {
	Message string               `json:"message"`
	Status  domain.Status        `json:"status"`
	Request *domain.BloodRequest `json:"request"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body, false); err != nil {
		WriteError(w, err)
		return
	}
	in := domain.NewRequestInput{
		BloodType:       body.BloodType,
		HospitalName:    body.HospitalName,
		LocationDetails: body.LocationDetails,
		Urgency:         body.Urgency,
		AdditionalInfo:  body.AdditionalInfo,
	}
	if body.TimeLimit != nil {
		in.TimeLimit = *body.TimeLimit
	}

	req, err := h.requests.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		logFailure(r, h.logger, "create blood request failed", err, "request_id", chimw.GetReqID(r.Context()))
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// List returns the caller's own requests for clients and the ranked open
// requests for donors.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.Actor(ctx)

	var (
		out any
		err error
	)
	switch actor.Role {
	case domain.RoleClient:
		out, err = h.requests.ListForClient(ctx, actor.UserID)
	case domain.RoleDonor:
		out, err = h.requests.ListForDonor(ctx, actor.UserID)
	default:
		err = domain.NewError(domain.CodeForbidden, "unauthorized role")
	}
	if err != nil {
		logFailure(r, h.logger, "list blood requests failed", err, "user_id", actor.UserID)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.requests.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *RequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	donorID := middleware.UserID(r.Context())
	req, err := h.requests.Accept(r.Context(), donorID, chi.URLParam(r, "id"))
	if err != nil {
		logFailure(r, h.logger, "accept blood request failed", err, "donor_id", donorID)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acceptResponse{Message: "Request accepted successfully.", Request: req})
}

func (h *RequestHandler) Arrived(w http.ResponseWriter, r *http.Request) {
	donorID := middleware.UserID(r.Context())
	if err := h.requests.MarkArrived(r.Context(), donorID, chi.URLParam(r, "id")); err != nil {
		logFailure(r, h.logger, "mark arrived failed", err, "donor_id", donorID)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "The requester has been notified of your arrival."})
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.UserID(r.Context())
	req, err := h.requests.Cancel(r.Context(), clientID, chi.URLParam(r, "id"))
	if err != nil {
		logFailure(r, h.logger, "cancel blood request failed", err, "client_id", clientID)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Message: "Request cancelled.", Status: req.Status, Request: req})
}
