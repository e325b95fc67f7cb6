// Package fakes holds hand-written test doubles for ports whose behaviour is
// easier to assert on as recorded state than as gomock expectations.
package fakes

import (
	"context"
	"sync"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

// NotificationRecorder captures notifications in memory. It serves both as a
// service-side sink and as a relay outlet.
type NotificationRecorder struct {
	mu sync.RWMutex

	name      string
	published []domain.Notification
	calls     int

	// Err is returned by every call while set.
	Err error
}

var (
	_ ports.NotificationSink      = (*NotificationRecorder)(nil)
	_ ports.NotificationPublisher = (*NotificationRecorder)(nil)
)

func NewNotificationRecorder(name string) *NotificationRecorder {
	return &NotificationRecorder{name: name}
}

func (r *NotificationRecorder) Name() string { return r.name }

func (r *NotificationRecorder) Notify(ctx context.Context, n domain.Notification) error {
	return r.Publish(ctx, n)
}

func (r *NotificationRecorder) Publish(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.Err != nil {
		return r.Err
	}
	r.published = append(r.published, n)
	return nil
}

// SetErr swaps the injected error under the lock.
func (r *NotificationRecorder) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// Published returns a copy of the recorded notifications.
func (r *NotificationRecorder) Published() []domain.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Notification, len(r.published))
	copy(out, r.published)
	return out
}

// OfType returns the recorded notifications of one type.
func (r *NotificationRecorder) OfType(t domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, n := range r.Published() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (r *NotificationRecorder) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls
}

func (r *NotificationRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = nil
	r.calls = 0
	r.Err = nil
}
