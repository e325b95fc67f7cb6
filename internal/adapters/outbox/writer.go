package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

const aggregateBloodRequest = "blood_request"

// Writer records notifications in outbox_events. The insert trigger wakes
// the relay through pg_notify.
type Writer struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.NotificationSink = (*Writer)(nil)

func NewWriter(db *sql.DB, cb *gobreaker.CircuitBreaker) *Writer {
	return &Writer{db: db, cb: cb}
}

func (w *Writer) Notify(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return domain.WrapError(err, domain.CodeInternal, "encode notification")
	}

	_, err = w.cb.Execute(func() (interface{}, error) {
		_, err := w.db.ExecContext(ctx, `
			INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			n.ID, aggregateBloodRequest, n.RequestID, string(n.Type), payload, n.OccurredAt,
		)
		return nil, err
	})
	if err != nil {
		return domain.WrapError(fmt.Errorf("insert outbox event: %w", err), domain.CodeTransient, "storage unavailable")
	}
	return nil
}
