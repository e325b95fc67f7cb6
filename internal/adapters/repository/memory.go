package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type donationKey struct {
	requestID string
	donorID   string
}

// MemoryStore keeps users, requests and donation events in process memory.
// One mutex guards everything, which makes every Update and Complete call
// atomic. Values are copied in and out so callers never share state.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	phones    map[string]string
	requests  map[string]*domain.BloodRequest
	donations map[donationKey]domain.DonationEvent
}

var _ ports.DonationLedger = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*domain.User),
		phones:    make(map[string]string),
		requests:  make(map[string]*domain.BloodRequest),
		donations: make(map[donationKey]domain.DonationEvent),
	}
}

// Users and Requests are views over the store for the two repository ports,
// which share method names.
func (s *MemoryStore) Users() *MemoryUsers { return &MemoryUsers{s} }

func (s *MemoryStore) Requests() *MemoryRequests { return &MemoryRequests{s} }

type MemoryUsers struct{ s *MemoryStore }

type MemoryRequests struct{ s *MemoryStore }

var (
	_ ports.UserRepository    = (*MemoryUsers)(nil)
	_ ports.RequestRepository = (*MemoryRequests)(nil)
)

func (m *MemoryUsers) Create(ctx context.Context, user *domain.User) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.phones[user.PhoneNumber]; taken {
		return domain.NewError(domain.CodeConflict, "a user with this phone number already exists")
	}
	if _, taken := s.users[user.ID]; taken {
		return domain.NewError(domain.CodeConflict, "record already exists")
	}
	s.users[user.ID] = cloneUser(user)
	s.phones[user.PhoneNumber] = user.ID
	return nil
}

func (m *MemoryUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "user not found")
	}
	return cloneUser(u), nil
}

func (m *MemoryUsers) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.phones[phone]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "user not found")
	}
	return cloneUser(s.users[id]), nil
}

func (m *MemoryUsers) UpdateDonorProfile(ctx context.Context, user *domain.User) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return domain.NewError(domain.CodeNotFound, "user not found")
	}
	next := cloneUser(stored)
	next.Age = cloneInt(user.Age)
	next.Weight = cloneFloat(user.Weight)
	next.BloodGroup = user.BloodGroup
	next.HealthInfo = slices.Clone(user.HealthInfo)
	next.DetailsSubmitted = user.DetailsSubmitted
	next.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = next
	return nil
}

func (m *MemoryUsers) Ping(ctx context.Context) error { return nil }

func (m *MemoryRequests) Create(ctx context.Context, r *domain.BloodRequest) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.requests[r.ID]; taken {
		return domain.NewError(domain.CodeConflict, "record already exists")
	}
	s.requests[r.ID] = cloneRequest(r)
	return nil
}

func (m *MemoryRequests) FindByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "blood request not found")
	}
	return cloneRequest(r), nil
}

func (m *MemoryRequests) ListByClient(ctx context.Context, clientID string) ([]*domain.BloodRequest, error) {
	return m.s.filter(func(r *domain.BloodRequest) bool { return r.ClientID == clientID }), nil
}

func (m *MemoryRequests) ListOpen(ctx context.Context, now time.Time) ([]*domain.BloodRequest, error) {
	return m.s.filter(func(r *domain.BloodRequest) bool { return r.OpenAt(now) }), nil
}

func (m *MemoryRequests) Update(ctx context.Context, id string, fn ports.RequestMutation) (*domain.BloodRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "blood request not found")
	}
	working := cloneRequest(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	s.requests[id] = cloneRequest(working)
	return working, nil
}

func (s *MemoryStore) Complete(ctx context.Context, requestID, donorID string, fn ports.CompletionFunc) (*domain.BloodRequest, *domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[requestID]
	if !ok {
		return nil, nil, domain.NewError(domain.CodeNotFound, "blood request not found")
	}
	key := donationKey{requestID: requestID, donorID: donorID}
	if _, done := s.donations[key]; done {
		return nil, nil, alreadyCompleted()
	}
	storedDonor, ok := s.users[donorID]
	if !ok {
		return nil, nil, domain.NewError(domain.CodeNotFound, "donor not found")
	}

	req, donor := cloneRequest(stored), cloneUser(storedDonor)
	event, err := fn(req, donor)
	if err != nil {
		return nil, nil, err
	}

	s.donations[key] = *event
	s.requests[requestID] = cloneRequest(req)
	s.users[donorID] = cloneUser(donor)
	return req, donor, nil
}

// DonationEvents returns the recorded events for a request.
func (s *MemoryStore) DonationEvents(requestID string) []domain.DonationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.DonationEvent
	for k, e := range s.donations {
		if k.requestID == requestID {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStore) filter(keep func(*domain.BloodRequest) bool) []*domain.BloodRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.BloodRequest{}
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, cloneRequest(r))
		}
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Age = cloneInt(u.Age)
	c.Weight = cloneFloat(u.Weight)
	c.HealthInfo = slices.Clone(u.HealthInfo)
	return &c
}

func cloneRequest(r *domain.BloodRequest) *domain.BloodRequest {
	c := *r
	c.AssignedDonors = donorList(slices.Clone(r.AssignedDonors))
	c.ConfirmedDonors = donorList(slices.Clone(r.ConfirmedDonors))
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
