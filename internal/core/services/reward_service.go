package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

// RewardService records completed donations and reports donor rewards.
type RewardService struct {
	users  ports.UserRepository
	ledger ports.DonationLedger
	sink   ports.NotificationSink
	options
}

var _ ports.RewardService = (*RewardService)(nil)

func NewRewardService(users ports.UserRepository, ledger ports.DonationLedger, sink ports.NotificationSink, opts ...Option) *RewardService {
	return &RewardService{
		users:   users,
		ledger:  ledger,
		sink:    sink,
		options: newOptions(opts),
	}
}

// CompleteDonation credits donorID for requestID. The request status, the
// donor's counters and the donation event are written together; a second
// call for the same pair fails with CodeAlreadyCompleted.
func (s *RewardService) CompleteDonation(ctx context.Context, donorID, requestID string, arrivalMinutes *int) (*domain.CompletionResult, error) {
	if arrivalMinutes != nil && *arrivalMinutes < 0 {
		return nil, domain.NewError(domain.CodeValidation, "arrival time cannot be negative")
	}

	var award domain.TokenAward
	req, donor, err := s.ledger.Complete(ctx, requestID, donorID, func(r *domain.BloodRequest, donor *domain.User) (*domain.DonationEvent, error) {
		if !donor.IsDonor() {
			return nil, domain.NewError(domain.CodeForbidden, "only donors can complete donations")
		}
		now := s.now()
		if err := r.ApplyCompletion(donorID, now); err != nil {
			return nil, err
		}
		award = domain.ComputeTokens(r.Urgency, now, arrivalMinutes)
		donor.ApplyDonation(award.Total(), now)
		return &domain.DonationEvent{
			RequestID:             r.ID,
			DonorID:               donorID,
			ArrivalLatencyMinutes: arrivalMinutes,
			TokensAwarded:         award.Total(),
			CompletedAt:           now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "donation completed",
		"request_id", requestID,
		"donor_id", donorID,
		"tokens", award.Total(),
		"request_status", req.Status,
	)
	s.metrics.RecordDonation(award.Total())

	n := domain.Notification{
		ID:          uuid.NewString(),
		Type:        domain.NotificationDonationCompleted,
		RequestID:   req.ID,
		RecipientID: req.ClientID,
		ActorID:     donorID,
		Message:     fmt.Sprintf("%s has completed a donation for your request", donor.Name),
		OccurredAt:  s.now(),
	}
	if err := s.sink.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification not delivered", "type", n.Type, "request_id", requestID, "error", err)
	}

	return &domain.CompletionResult{
		TokensAwarded: award.Total(),
		TotalTokens:   donor.Tokens,
		Title:         donor.Title,
		Breakdown:     award,
		RequestStatus: req.Status,
	}, nil
}

func (s *RewardService) Rewards(ctx context.Context, donorID string) (*domain.RewardSummary, error) {
	donor, err := s.users.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	summary := domain.SummarizeRewards(donor)
	return &summary, nil
}
