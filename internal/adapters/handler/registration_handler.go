package handler

import (
	"log/slog"
	"net/http"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type RegistrationHandler struct {
	registrationService ports.RegistrationService
	logger              *slog.Logger
}

func NewRegistrationHandler(registration ports.RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registration, logger: logger}
}

// RegistrationRequest is the signup body. Donor fields are read only when
// the role is donor and at least one of them is present.
type RegistrationRequest struct {
	Name        string           `json:"name"`
	PhoneNumber string           `json:"phoneNumber"`
	Password    string           `json:"password"`
	Role        domain.Role      `json:"role"`
	Age         *int             `json:"age,omitempty"`
	Weight      *float64         `json:"weight,omitempty"`
	BloodGroup  domain.BloodType `json:"bloodGroup,omitempty"`
	HealthInfo  []string         `json:"healthInfo,omitempty"`
}

func (req RegistrationRequest) donorProfile() *domain.DonorProfile {
	if req.Role != domain.RoleDonor {
		return nil
	}
	if req.Age == nil && req.Weight == nil && req.BloodGroup == "" && len(req.HealthInfo) == 0 {
		return nil
	}
	p := &domain.DonorProfile{BloodGroup: req.BloodGroup, HealthInfo: req.HealthInfo}
	if req.Age != nil {
		p.Age = *req.Age
	}
	if req.Weight != nil {
		p.Weight = *req.Weight
	}
	return p
}

func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.registrationService.Signup(r.Context(), ports.SignupInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Role:        req.Role,
		Donor:       req.donorProfile(),
	})
	if err != nil {
		logFailure(r, h.logger, "registration failed", err, "role", req.Role)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
