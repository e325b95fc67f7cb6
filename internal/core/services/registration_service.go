package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

const (
	minPasswordLength = 6
	// bcrypt ignores anything past 72 bytes
	maxPasswordLength = 72
)

type RegistrationService struct {
	users  ports.UserRepository
	issuer ports.TokenIssuer
	options
}

var _ ports.RegistrationService = (*RegistrationService)(nil)

func NewRegistrationService(users ports.UserRepository, issuer ports.TokenIssuer, opts ...Option) *RegistrationService {
	return &RegistrationService{
		users:   users,
		issuer:  issuer,
		options: newOptions(opts),
	}
}

// Signup creates a client or donor account and logs it in. Donor details
// are optional at signup and ignored for clients.
func (s *RegistrationService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	if err := validateSignup(in); err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(in.PhoneNumber)

	_, err := s.users.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		return nil, domain.NewError(domain.CodeConflict, "user already exists")
	case !domain.HasCode(err, domain.CodeNotFound):
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := domain.NewUser(uuid.NewString(), strings.TrimSpace(in.Name), phone, hash, in.Role, now)
	if in.Role == domain.RoleDonor && in.Donor != nil {
		user.ApplyProfile(*in.Donor, now)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if domain.HasCode(err, domain.CodeConflict) {
			return nil, domain.NewError(domain.CodeConflict, "user already exists")
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)

	return s.issuer.Issue(user)
}

func validateSignup(in ports.SignupInput) error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		missing = append(missing, "phoneNumber")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return domain.NewError(domain.CodeValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	if !in.Role.Valid() {
		return domain.NewError(domain.CodeValidation, "role must be donor or client")
	}
	if n := len(in.Password); n < minPasswordLength || n > maxPasswordLength {
		return domain.NewError(domain.CodeValidation, "password must be between 6 and 72 characters")
	}
	if in.Role == domain.RoleDonor && in.Donor != nil {
		return in.Donor.Validate()
	}
	return nil
}
