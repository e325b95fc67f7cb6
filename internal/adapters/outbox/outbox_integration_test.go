//go:build integration

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/suite"

	"github.com/raktsetu/blood-request-service/internal/adapters/repository"
	"github.com/raktsetu/blood-request-service/internal/config"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/testutil/containers"
	"github.com/raktsetu/blood-request-service/internal/testutil/fakes"
)

type OutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	writer   *Writer
	outlet   *fakes.NotificationRecorder
	relay    *Relay
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(repository.Migrate(context.Background(), s.postgres.DB))
	s.writer = NewWriter(s.postgres.DB, config.NewCircuitBreaker(config.BreakerPostgres))
}

func (s *OutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox_events"))
	s.outlet = fakes.NewNotificationRecorder("recorder")
	s.relay = NewRelay(s.postgres.DB, s.postgres.DSN, discardLogger(), nil, s.outlet)
}

func (s *OutboxSuite) notification(t domain.NotificationType) domain.Notification {
	return domain.Notification{
		ID:          uuid.NewString(),
		Type:        t,
		RequestID:   uuid.NewString(),
		RecipientID: uuid.NewString(),
		Message:     "test",
		OccurredAt:  time.Now().UTC(),
	}
}

func (s *OutboxSuite) pending() int {
	var n int
	s.Require().NoError(s.postgres.DB.QueryRow(
		`SELECT COUNT(*) FROM outbox_events WHERE processed_at IS NULL`).Scan(&n))
	return n
}

func (s *OutboxSuite) TestBacklogIsDrained() {
	ctx := context.Background()
	s.Require().NoError(s.writer.Notify(ctx, s.notification(domain.NotificationRequestAccepted)))
	s.Require().NoError(s.writer.Notify(ctx, s.notification(domain.NotificationDonorArrived)))
	s.Equal(2, s.pending())

	s.Require().NoError(s.relay.processUnprocessedEvents(ctx))

	s.Len(s.outlet.Published(), 2)
	s.Equal(0, s.pending())
}

func (s *OutboxSuite) TestFailedDeliveryStaysPending() {
	ctx := context.Background()
	s.Require().NoError(s.writer.Notify(ctx, s.notification(domain.NotificationRequestCancelled)))

	s.outlet.SetErr(context.DeadlineExceeded)
	s.Require().NoError(s.relay.processUnprocessedEvents(ctx))
	s.Equal(1, s.pending())

	s.outlet.SetErr(nil)
	s.Require().NoError(s.relay.processUnprocessedEvents(ctx))
	s.Equal(0, s.pending())
	s.Len(s.outlet.Published(), 1)
}

func (s *OutboxSuite) TestOutletFailuresDoNotTripDatabaseBreaker() {
	ctx := context.Background()
	s.Require().NoError(s.writer.Notify(ctx, s.notification(domain.NotificationDonorArrived)))

	var eventID string
	s.Require().NoError(s.postgres.DB.QueryRow(`SELECT id FROM outbox_events LIMIT 1`).Scan(&eventID))

	s.outlet.SetErr(errors.New("broker unreachable"))
	for range 5 {
		s.Error(s.relay.processEventByID(ctx, eventID))
	}

	s.Equal(gobreaker.StateClosed, s.relay.dbCB.State())
	s.True(s.relay.IsReady())
	s.Equal(1, s.pending())

	s.outlet.SetErr(nil)
	s.Require().NoError(s.relay.processEventByID(ctx, eventID))
	s.Equal(0, s.pending())
}

func (s *OutboxSuite) TestListenerDeliversNewRows() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.relay.Start(ctx) }()

	// a row inserted before LISTEN is picked up by the startup scan instead
	time.Sleep(200 * time.Millisecond)

	n := s.notification(domain.NotificationDonationCompleted)
	s.Require().NoError(s.writer.Notify(ctx, n))

	s.Eventually(func() bool {
		return len(s.outlet.OfType(domain.NotificationDonationCompleted)) == 1
	}, 10*time.Second, 100*time.Millisecond)
	s.Equal(n.ID, s.outlet.Published()[0].ID)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}
