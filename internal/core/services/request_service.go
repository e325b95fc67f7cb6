package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

// RequestService runs the blood request lifecycle.
type RequestService struct {
	users    ports.UserRepository
	requests ports.RequestRepository
	sink     ports.NotificationSink
	options
}

var _ ports.RequestService = (*RequestService)(nil)

func NewRequestService(users ports.UserRepository, requests ports.RequestRepository, sink ports.NotificationSink, opts ...Option) *RequestService {
	return &RequestService{
		users:    users,
		requests: requests,
		sink:     sink,
		options:  newOptions(opts),
	}
}

func (s *RequestService) Create(ctx context.Context, clientID string, in domain.NewRequestInput) (*domain.BloodRequest, error) {
	req, err := domain.NewBloodRequest(uuid.NewString(), clientID, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "blood request created",
		"request_id", req.ID,
		"client_id", clientID,
		"blood_type", req.BloodType,
		"urgency", req.Urgency,
	)
	s.metrics.IncrementRequestCreated(string(req.Urgency))
	return req, nil
}

func (s *RequestService) ListForClient(ctx context.Context, clientID string) ([]*domain.BloodRequest, error) {
	reqs, err := s.requests.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	domain.NewestFirst(reqs)
	return reqs, nil
}

// ListForDonor returns the open requests a donor may accept, most urgent first.
func (s *RequestService) ListForDonor(ctx context.Context, donorID string) ([]domain.DonorRequestView, error) {
	donor, err := s.donorWithBloodGroup(ctx, donorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	reqs, err := s.requests.ListOpen(ctx, now)
	if err != nil {
		return nil, err
	}
	return domain.RankForDonor(reqs, donor.BloodGroup, now), nil
}

// Get shows a request to its owner or to any donor.
func (s *RequestService) Get(ctx context.Context, actor domain.Actor, requestID string) (*domain.BloodRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleClient && req.ClientID != actor.UserID {
		return nil, domain.NewError(domain.CodeForbidden, "you can only view your own requests")
	}
	return req, nil
}

func (s *RequestService) Accept(ctx context.Context, donorID, requestID string) (*domain.BloodRequest, error) {
	// An unknown request is reported before anything about the donor.
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, err
	}
	donor, err := s.donorWithBloodGroup(ctx, donorID)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.Update(ctx, requestID, func(r *domain.BloodRequest) error {
		return r.Accept(donorID, donor.BloodGroup, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "blood request accepted",
		"request_id", requestID,
		"donor_id", donorID,
		"confirmed", len(req.ConfirmedDonors),
	)
	s.metrics.IncrementTransition("accept")
	s.notify(ctx, domain.Notification{
		Type:        domain.NotificationRequestAccepted,
		RequestID:   req.ID,
		RecipientID: req.ClientID,
		ActorID:     donorID,
		Message:     fmt.Sprintf("%s has accepted your request at %s", donor.Name, req.HospitalName),
	})
	return req, nil
}

// MarkArrived tells the requester that a confirmed donor is on site. The
// notification is the whole effect, so a failed delivery is returned.
func (s *RequestService) MarkArrived(ctx context.Context, donorID, requestID string) error {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if err := req.CheckArrival(donorID); err != nil {
		return err
	}

	n := s.notification(domain.Notification{
		Type:        domain.NotificationDonorArrived,
		RequestID:   req.ID,
		RecipientID: req.ClientID,
		ActorID:     donorID,
		Message:     "Your donor has arrived at " + req.HospitalName,
	})
	if err := s.sink.Notify(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "arrival notification failed", "request_id", requestID, "error", err)
		if domain.IsDomainError(err) {
			return err
		}
		return domain.WrapError(err, domain.CodeTransient, "notification could not be delivered")
	}

	s.logger.InfoContext(ctx, "donor arrived", "request_id", requestID, "donor_id", donorID)
	s.metrics.IncrementTransition("arrive")
	return nil
}

func (s *RequestService) Cancel(ctx context.Context, clientID, requestID string) (*domain.BloodRequest, error) {
	req, err := s.requests.Update(ctx, requestID, func(r *domain.BloodRequest) error {
		return r.Cancel(clientID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "blood request cancelled", "request_id", requestID, "client_id", clientID)
	s.metrics.IncrementTransition("cancel")
	for _, donorID := range req.ConfirmedDonors {
		s.notify(ctx, domain.Notification{
			Type:        domain.NotificationRequestCancelled,
			RequestID:   req.ID,
			RecipientID: donorID,
			ActorID:     clientID,
			Message:     "The request at " + req.HospitalName + " has been cancelled",
		})
	}
	return req, nil
}

func (s *RequestService) donorWithBloodGroup(ctx context.Context, donorID string) (*domain.User, error) {
	donor, err := s.users.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.HasBloodGroup() {
		return nil, domain.NewError(domain.CodePrecondition, "set your blood group in donor details first")
	}
	return donor, nil
}

func (s *RequestService) notification(n domain.Notification) domain.Notification {
	n.ID = uuid.NewString()
	n.OccurredAt = s.now()
	return n
}

// notify delivers n best-effort. The state change it reports is already
// committed.
func (s *RequestService) notify(ctx context.Context, n domain.Notification) {
	if err := s.sink.Notify(ctx, s.notification(n)); err != nil {
		s.logger.WarnContext(ctx, "notification not delivered",
			"type", n.Type,
			"request_id", n.RequestID,
			"recipient_id", n.RecipientID,
			"error", err,
		)
	}
}
