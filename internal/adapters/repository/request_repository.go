package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

const selectRequest = `
	SELECT id, client_id, blood_type, hospital_name, location_details, time_limit, urgency,
	       additional_info, status, assigned_donors, confirmed_donors, created_at, updated_at
	FROM blood_requests`

type RequestRepository struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.RequestRepository = (*RequestRepository)(nil)

func NewRequestRepository(db *sql.DB, cb *gobreaker.CircuitBreaker) *RequestRepository {
	return &RequestRepository{db: db, cb: cb}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.BloodRequest) error {
	_, err := guarded(r.cb, "create blood request", func() (struct{}, error) {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO blood_requests (id, client_id, blood_type, hospital_name, location_details,
			                            time_limit, urgency, additional_info, status,
			                            assigned_donors, confirmed_donors, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			req.ID,
			req.ClientID,
			req.BloodType,
			req.HospitalName,
			req.LocationDetails,
			req.TimeLimit,
			req.Urgency,
			req.AdditionalInfo,
			req.Status,
			pq.Array(donorList(req.AssignedDonors)),
			pq.Array(donorList(req.ConfirmedDonors)),
			req.CreatedAt,
			req.UpdatedAt,
		)
		return struct{}{}, err
	})
	return err
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	return guarded(r.cb, "find blood request", func() (*domain.BloodRequest, error) {
		req, err := scanRequest(r.db.QueryRowContext(ctx, selectRequest+" WHERE id = $1", id))
		if err != nil {
			return nil, notFoundOr(err, "blood request not found", "find blood request")
		}
		return req, nil
	})
}

func (r *RequestRepository) ListByClient(ctx context.Context, clientID string) ([]*domain.BloodRequest, error) {
	return guarded(r.cb, "list client requests", func() ([]*domain.BloodRequest, error) {
		return r.query(ctx, selectRequest+" WHERE client_id = $1 ORDER BY created_at DESC", clientID)
	})
}

func (r *RequestRepository) ListOpen(ctx context.Context, now time.Time) ([]*domain.BloodRequest, error) {
	return guarded(r.cb, "list open requests", func() ([]*domain.BloodRequest, error) {
		return r.query(ctx, selectRequest+" WHERE status = $1 AND time_limit > $2", domain.StatusActive, now)
	})
}

// Update locks the row with SELECT ... FOR UPDATE so concurrent accepts on
// the same request queue behind each other.
func (r *RequestRepository) Update(ctx context.Context, id string, fn ports.RequestMutation) (*domain.BloodRequest, error) {
	return guarded(r.cb, "update blood request", func() (*domain.BloodRequest, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		req, err := lockRequest(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(req); err != nil {
			return nil, err
		}
		if err := saveRequest(ctx, tx, req); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return req, nil
	})
}

func (r *RequestRepository) query(ctx context.Context, q string, args ...any) ([]*domain.BloodRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.BloodRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func lockRequest(ctx context.Context, tx *sql.Tx, id string) (*domain.BloodRequest, error) {
	req, err := scanRequest(tx.QueryRowContext(ctx, selectRequest+" WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return nil, notFoundOr(err, "blood request not found", "lock blood request")
	}
	return req, nil
}

func saveRequest(ctx context.Context, tx *sql.Tx, req *domain.BloodRequest) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE blood_requests
		SET status = $2, assigned_donors = $3, confirmed_donors = $4, updated_at = $5
		WHERE id = $1`,
		req.ID,
		req.Status,
		pq.Array(donorList(req.AssignedDonors)),
		pq.Array(donorList(req.ConfirmedDonors)),
		req.UpdatedAt,
	)
	return err
}

func scanRequest(row rowScanner) (*domain.BloodRequest, error) {
	var req domain.BloodRequest
	err := row.Scan(
		&req.ID,
		&req.ClientID,
		&req.BloodType,
		&req.HospitalName,
		&req.LocationDetails,
		&req.TimeLimit,
		&req.Urgency,
		&req.AdditionalInfo,
		&req.Status,
		pq.Array(&req.AssignedDonors),
		pq.Array(&req.ConfirmedDonors),
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.AssignedDonors = donorList(req.AssignedDonors)
	req.ConfirmedDonors = donorList(req.ConfirmedDonors)
	req.TimeLimit = req.TimeLimit.UTC()
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	return &req, nil
}

func donorList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
