package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/raktsetu/blood-request-service/internal/config"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
	"github.com/raktsetu/blood-request-service/internal/metrics"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	outboxChannelName            = "outbox_channel"

	// Event processing timeouts
	eventProcessTimeout     = 30 * time.Second
	batchProcessTimeout     = 60 * time.Second
	periodicProcessInterval = 90 * time.Second

	healthCheckStaleThreshold = 5 * time.Minute

	maxEventsPerBatch = 100
)

var errInvalidPayload = errors.New("invalid outbox payload")

// Relay listens for PostgreSQL NOTIFY signals on outbox_channel and delivers
// each pending notification to every outlet. A row is marked processed only
// once all outlets accepted it, so delivery is at-least-once per outlet.
type Relay struct {
	db       *sql.DB
	dbURL    string
	outlets  []ports.NotificationPublisher
	listener *pq.Listener
	dbCB     *gobreaker.CircuitBreaker
	logger   *slog.Logger
	metrics  *metrics.Metrics

	lastProcessed atomic.Int64
	healthy       atomic.Bool
}

func NewRelay(db *sql.DB, dbURL string, logger *slog.Logger, m *metrics.Metrics, outlets ...ports.NotificationPublisher) *Relay {
	r := &Relay{
		db:      db,
		dbURL:   dbURL,
		outlets: outlets,
		dbCB:    config.NewCircuitBreaker(config.BreakerRelayPostgres),
		logger:  logger,
		metrics: m,
	}
	r.markProcessed()
	r.healthy.Store(true)
	return r
}

// IsHealthy is the liveness check: the process is up and its listener is
// connected. An open breaker is degraded, not dead.
func (r *Relay) IsHealthy() bool {
	return r.healthy.Load()
}

// IsReady reports whether the relay can make progress right now.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}
	last := time.Unix(0, r.lastProcessed.Load())
	if time.Since(last) > healthCheckStaleThreshold {
		return false
	}
	return r.healthy.Load()
}

func (r *Relay) markProcessed() {
	r.lastProcessed.Store(time.Now().UnixNano())
}

// Start blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Warn("outbox listener error", "event", ev, "error", err)
		}
	}

	r.listener = pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer r.listener.Close()

	if err := r.listener.Listen(outboxChannelName); err != nil {
		return fmt.Errorf("listen %s: %w", outboxChannelName, err)
	}
	r.logger.Info("outbox relay listening", "channel", outboxChannelName, "outlets", len(r.outlets))

	// Catch up on anything written while the relay was down.
	if err := r.processUnprocessedEvents(ctx); err != nil {
		r.logger.Error("outbox startup backlog failed", "error", err)
	}

	ticker := time.NewTicker(periodicProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay shutting down")
			return ctx.Err()

		case n := <-r.listener.Notify:
			if n == nil {
				// pq sends nil after a reconnect; rows may have been missed.
				r.logger.Warn("outbox listener reconnected, rescanning backlog")
				r.healthy.Store(false)
				if err := r.processUnprocessedEvents(ctx); err == nil {
					r.healthy.Store(true)
				}
				continue
			}
			if err := r.processEventByID(ctx, n.Extra); err != nil {
				r.logger.Error("outbox event failed", "event_id", n.Extra, "error", err)
				continue
			}
			r.markProcessed()
			r.healthy.Store(true)

		case <-ticker.C:
			go r.listener.Ping()
			if err := r.processUnprocessedEvents(ctx); err != nil {
				r.logger.Error("outbox periodic scan failed", "error", err)
				continue
			}
			r.markProcessed()
		}
	}
}

// publish decodes one outbox payload and fans it out to every outlet.
func (r *Relay) publish(ctx context.Context, payload []byte) error {
	var n domain.Notification
	if err := json.Unmarshal(payload, &n); err != nil || n.Type == "" || n.RequestID == "" {
		return errInvalidPayload
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, outlet := range r.outlets {
		g.Go(func() error {
			err := outlet.Publish(gctx, n)
			r.metrics.IncrementPublished(outlet.Name(), err == nil)
			if err != nil {
				return fmt.Errorf("%s: %w", outlet.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Relay) processEventByID(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	// Outlet failures stay outside the breaker; each outlet has its own.
	var publishErr error
	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var payload []byte
		err = tx.QueryRowContext(ctx, `
			SELECT payload
			FROM outbox_events
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, eventID).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			// Already handled, or locked by another relay.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if publishErr = r.handle(ctx, eventID, payload); publishErr != nil {
			return nil, nil
		}
		if err := markDone(ctx, tx, eventID); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	if err != nil {
		return err
	}
	if publishErr != nil {
		return fmt.Errorf("publish %s: %w", eventID, publishErr)
	}
	return nil
}

func (r *Relay) processUnprocessedEvents(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, payload
			FROM outbox_events
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}

		type record struct {
			ID      string
			Payload []byte
		}
		var records []record
		for rows.Next() {
			var rec record
			if err := rows.Scan(&rec.ID, &rec.Payload); err != nil {
				rows.Close()
				return nil, err
			}
			records = append(records, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, rec := range records {
			if err := r.handle(ctx, rec.ID, rec.Payload); err != nil {
				// Left unprocessed for the next pass.
				r.logger.Warn("outbox publish failed", "event_id", rec.ID, "error", err)
				continue
			}
			if err := markDone(ctx, tx, rec.ID); err != nil {
				return nil, err
			}
		}
		return nil, tx.Commit()
	})
	return err
}

// handle publishes one row. Undecodable rows are reported as handled so they
// are not retried forever.
func (r *Relay) handle(ctx context.Context, id string, payload []byte) error {
	err := r.publish(ctx, payload)
	switch {
	case errors.Is(err, errInvalidPayload):
		r.logger.Error("outbox payload rejected", "event_id", id)
		r.metrics.IncrementOutbox("invalid")
		return nil
	case err != nil:
		r.metrics.IncrementOutbox("failed")
		return err
	}
	r.metrics.IncrementOutbox("published")
	r.logger.Debug("outbox event published", "event_id", id)
	return nil
}

func markDone(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	return err
}
