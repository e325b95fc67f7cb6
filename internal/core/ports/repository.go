package ports

import (
	"context"
	"time"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository_mocks.go -package=mocks

// UserRepository stores clients and donors. Lookups return a
// domain.CodeNotFound error when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	UpdateDonorProfile(ctx context.Context, user *domain.User) error
	Ping(ctx context.Context) error
}

// RequestMutation changes a request in place. Returning an error aborts the
// update and nothing is written.
type RequestMutation func(r *domain.BloodRequest) error

type RequestRepository interface {
	Create(ctx context.Context, r *domain.BloodRequest) error
	FindByID(ctx context.Context, id string) (*domain.BloodRequest, error)
	ListByClient(ctx context.Context, clientID string) ([]*domain.BloodRequest, error)
	// ListOpen returns active requests whose time limit is after now.
	ListOpen(ctx context.Context, now time.Time) ([]*domain.BloodRequest, error)
	// Update loads the request, applies fn and saves the result as one atomic
	// step. Concurrent updates of the same request are serialized.
	Update(ctx context.Context, id string, fn RequestMutation) (*domain.BloodRequest, error)
}

// CompletionFunc validates and applies one donation to the locked request and
// donor, returning the event to record.
type CompletionFunc func(r *domain.BloodRequest, donor *domain.User) (*domain.DonationEvent, error)

// DonationLedger records completed donations. Complete holds the request and
// the donor for the whole call, so at most one completion per
// (request, donor) pair succeeds; the rest fail with CodeAlreadyCompleted.
type DonationLedger interface {
	Complete(ctx context.Context, requestID, donorID string, fn CompletionFunc) (*domain.BloodRequest, *domain.User, error)
}
