package ports

import (
	"context"
	"time"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
)

//go:generate mockgen -source=event.go -destination=mocks/event_mocks.go -package=mocks

// NotificationSink accepts notifications raised by request operations.
type NotificationSink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NotificationPublisher delivers relayed notifications to one outlet
// (a broker queue, a chat channel).
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
	Name() string
}

// TokenRevocationStore tracks signed-out token ids until they expire.
type TokenRevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
