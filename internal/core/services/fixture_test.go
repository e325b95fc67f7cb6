package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/raktsetu/blood-request-service/internal/adapters/repository"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/testutil/fakes"
)

// fixture wires services to the memory store with a controllable clock.
type fixture struct {
	suite.Suite
	store  *repository.MemoryStore
	sink   *fakes.NotificationRecorder
	now    time.Time
	client *domain.User
}

func (f *fixture) setup() {
	f.store = repository.NewMemoryStore()
	f.sink = fakes.NewNotificationRecorder("sink")
	f.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.client = f.addUser(domain.RoleClient, "")
}

func (f *fixture) opts() []Option {
	return []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	}
}

func (f *fixture) addUser(role domain.Role, group domain.BloodType) *domain.User {
	u := domain.NewUser(uuid.NewString(), string(role)+" user", "+91"+uuid.NewString()[:10], "hash", role, f.now)
	if group != "" {
		u.ApplyProfile(domain.DonorProfile{Age: 30, Weight: 70, BloodGroup: group, HealthInfo: []string{"none"}}, f.now)
	}
	f.Require().NoError(f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) addRequest(bloodType domain.BloodType, urgency domain.Urgency) *domain.BloodRequest {
	req, err := domain.NewBloodRequest(uuid.NewString(), f.client.ID, domain.NewRequestInput{
		BloodType:       bloodType,
		HospitalName:    "City Hospital",
		LocationDetails: "Ward 4",
		TimeLimit:       f.now.Add(6 * time.Hour),
		Urgency:         urgency,
	}, f.now)
	f.Require().NoError(err)
	f.Require().NoError(f.store.Requests().Create(context.Background(), req))
	return req
}

func intPtr(v int) *int { return &v }
