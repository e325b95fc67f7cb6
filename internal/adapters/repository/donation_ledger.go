package repository

import (
	"context"
	"database/sql"

	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

// DonationLedger applies completions in one transaction. The request row lock
// serializes completions for the same request, and the donation_events
// primary key rejects a second event for the same donor.
type DonationLedger struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.DonationLedger = (*DonationLedger)(nil)

func NewDonationLedger(db *sql.DB, cb *gobreaker.CircuitBreaker) *DonationLedger {
	return &DonationLedger{db: db, cb: cb}
}

type ledgerResult struct {
	request *domain.BloodRequest
	donor   *domain.User
}

func (l *DonationLedger) Complete(ctx context.Context, requestID, donorID string, fn ports.CompletionFunc) (*domain.BloodRequest, *domain.User, error) {
	res, err := guarded(l.cb, "complete donation", func() (ledgerResult, error) {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return ledgerResult{}, err
		}
		defer tx.Rollback()

		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return ledgerResult{}, err
		}

		var done bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM donation_events WHERE request_id = $1 AND donor_id = $2)`,
			requestID, donorID,
		).Scan(&done)
		if err != nil {
			return ledgerResult{}, err
		}
		if done {
			return ledgerResult{}, alreadyCompleted()
		}

		donor, err := scanUser(tx.QueryRowContext(ctx, selectUser+" WHERE id = $1 FOR UPDATE", donorID))
		if err != nil {
			return ledgerResult{}, notFoundOr(err, "donor not found", "lock donor")
		}

		event, err := fn(req, donor)
		if err != nil {
			return ledgerResult{}, err
		}

		inserted, err := tx.ExecContext(ctx, `
			INSERT INTO donation_events (request_id, donor_id, arrival_latency_minutes, tokens_awarded, completed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (request_id, donor_id) DO NOTHING`,
			event.RequestID,
			event.DonorID,
			nullInt(event.ArrivalLatencyMinutes),
			event.TokensAwarded,
			event.CompletedAt,
		)
		if err != nil {
			return ledgerResult{}, err
		}
		if n, err := inserted.RowsAffected(); err != nil {
			return ledgerResult{}, err
		} else if n == 0 {
			return ledgerResult{}, alreadyCompleted()
		}

		if err := saveRequest(ctx, tx, req); err != nil {
			return ledgerResult{}, err
		}
		if err := saveRewards(ctx, tx, donor); err != nil {
			return ledgerResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return ledgerResult{}, err
		}
		return ledgerResult{request: req, donor: donor}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res.request, res.donor, nil
}

func alreadyCompleted() error {
	return domain.NewError(domain.CodeAlreadyCompleted, "you have already completed this donation")
}
