package ports

import (
	"context"
	"time"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mocks.go -package=mocks

// SignupInput is a new account. Donor may carry the donor profile at signup.
type SignupInput struct {
	Name        string
	PhoneNumber string
	Password    string
	Role        domain.Role
	Donor       *domain.DonorProfile
}

// AuthResult is a freshly issued access token.
type AuthResult struct {
	Token     string      `json:"token"`
	Role      domain.Role `json:"role"`
	UserID    string      `json:"userId"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type TokenIssuer interface {
	Issue(user *domain.User) (*AuthResult, error)
}

type AuthService interface {
	Login(ctx context.Context, phone, password string) (*AuthResult, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type RegistrationService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
}

type DonorService interface {
	Details(ctx context.Context, donorID string) (*domain.DonorDetails, error)
	UpdateDetails(ctx context.Context, donorID string, p domain.DonorProfile) (*domain.DonorDetails, error)
}

type RequestService interface {
	Create(ctx context.Context, clientID string, in domain.NewRequestInput) (*domain.BloodRequest, error)
	ListForClient(ctx context.Context, clientID string) ([]*domain.BloodRequest, error)
	ListForDonor(ctx context.Context, donorID string) ([]domain.DonorRequestView, error)
	Get(ctx context.Context, actor domain.Actor, requestID string) (*domain.BloodRequest, error)
	Accept(ctx context.Context, donorID, requestID string) (*domain.BloodRequest, error)
	MarkArrived(ctx context.Context, donorID, requestID string) error
	Cancel(ctx context.Context, clientID, requestID string) (*domain.BloodRequest, error)
}

type RewardService interface {
	CompleteDonation(ctx context.Context, donorID, requestID string, arrivalMinutes *int) (*domain.CompletionResult, error)
	Rewards(ctx context.Context, donorID string) (*domain.RewardSummary, error)
}
