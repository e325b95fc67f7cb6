package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

const selectUser = `
	SELECT id, name, phone_number, password_hash, role, age, weight, blood_group,
	       health_info, details_submitted, donations, tokens, title, created_at, updated_at
	FROM users`

type UserRepository struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB, cb *gobreaker.CircuitBreaker) *UserRepository {
	return &UserRepository{db: db, cb: cb}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := guarded(r.cb, "create user", func() (struct{}, error) {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users (id, name, phone_number, password_hash, role, age, weight, blood_group,
			                   health_info, details_submitted, donations, tokens, title, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			user.ID,
			user.Name,
			user.PhoneNumber,
			user.PasswordHash,
			user.Role,
			nullInt(user.Age),
			nullFloat(user.Weight),
			nullString(string(user.BloodGroup)),
			pq.Array(healthInfo(user.HealthInfo)),
			user.DetailsSubmitted,
			user.Donations,
			user.Tokens,
			user.Title,
			user.CreatedAt,
			user.UpdatedAt,
		)
		return struct{}{}, err
	})
	if domain.HasCode(err, domain.CodeConflict) {
		return domain.WrapError(err, domain.CodeConflict, "a user with this phone number already exists")
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return guarded(r.cb, "find user", func() (*domain.User, error) {
		u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+" WHERE id = $1", id))
		if err != nil {
			return nil, notFoundOr(err, "user not found", "find user")
		}
		return u, nil
	})
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return guarded(r.cb, "find user by phone", func() (*domain.User, error) {
		u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+" WHERE phone_number = $1", phone))
		if err != nil {
			return nil, notFoundOr(err, "user not found", "find user by phone")
		}
		return u, nil
	})
}

func (r *UserRepository) UpdateDonorProfile(ctx context.Context, user *domain.User) error {
	_, err := guarded(r.cb, "update donor profile", func() (struct{}, error) {
		res, err := r.db.ExecContext(ctx, `
			UPDATE users
			SET age = $2, weight = $3, blood_group = $4, health_info = $5,
			    details_submitted = $6, updated_at = $7
			WHERE id = $1`,
			user.ID,
			nullInt(user.Age),
			nullFloat(user.Weight),
			nullString(string(user.BloodGroup)),
			pq.Array(healthInfo(user.HealthInfo)),
			user.DetailsSubmitted,
			user.UpdatedAt,
		)
		if err != nil {
			return struct{}{}, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return struct{}{}, domain.NewError(domain.CodeNotFound, "user not found")
		}
		return struct{}{}, nil
	})
	return err
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storageError(err, "ping postgres")
	}
	return nil
}

// saveRewards writes the donor's reward counters inside a ledger transaction.
func saveRewards(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users SET donations = $2, tokens = $3, title = $4, updated_at = $5
		WHERE id = $1`,
		u.ID, u.Donations, u.Tokens, u.Title, u.UpdatedAt,
	)
	return err
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		age        sql.NullInt64
		weight     sql.NullFloat64
		bloodGroup sql.NullString
		health     []string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.Role,
		&age,
		&weight,
		&bloodGroup,
		pq.Array(&health),
		&u.DetailsSubmitted,
		&u.Donations,
		&u.Tokens,
		&u.Title,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		u.Age = &v
	}
	if weight.Valid {
		v := weight.Float64
		u.Weight = &v
	}
	u.BloodGroup = domain.BloodType(bloodGroup.String)
	if len(health) > 0 {
		u.HealthInfo = health
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func healthInfo(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
