package services

import (
	"context"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type DonorService struct {
	users ports.UserRepository
	options
}

var _ ports.DonorService = (*DonorService)(nil)

func NewDonorService(users ports.UserRepository, opts ...Option) *DonorService {
	return &DonorService{users: users, options: newOptions(opts)}
}

func (s *DonorService) Details(ctx context.Context, donorID string) (*domain.DonorDetails, error) {
	u, err := s.users.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	d := u.Profile()
	return &d, nil
}

// UpdateDetails files a complete donor profile and marks it submitted.
func (s *DonorService) UpdateDetails(ctx context.Context, donorID string, p domain.DonorProfile) (*domain.DonorDetails, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !u.IsDonor() {
		return nil, domain.NewError(domain.CodeForbidden, "only donors have donor details")
	}

	u.ApplyProfile(p, s.now())
	if err := s.users.UpdateDonorProfile(ctx, u); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "donor details updated", "donor_id", donorID, "blood_group", u.BloodGroup)
	d := u.Profile()
	return &d, nil
}
