package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

// passwordCost is the bcrypt work factor for new password hashes.
var passwordCost = bcrypt.DefaultCost

// AuthService signs RS256 access tokens and revokes them on logout.
type AuthService struct {
	users       ports.UserRepository
	revocations ports.TokenRevocationStore
	privateKey  *rsa.PrivateKey
	ttl         time.Duration
	options
}

var (
	_ ports.AuthService = (*AuthService)(nil)
	_ ports.TokenIssuer = (*AuthService)(nil)
)

func NewAuthService(
	users ports.UserRepository,
	revocations ports.TokenRevocationStore,
	privateKey *rsa.PrivateKey,
	ttl time.Duration,
	opts ...Option,
) *AuthService {
	return &AuthService{
		users:       users,
		revocations: revocations,
		privateKey:  privateKey,
		ttl:         ttl,
		options:     newOptions(opts),
	}
}

func (s *AuthService) Login(ctx context.Context, phone, password string) (*ports.AuthResult, error) {
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if domain.HasCode(err, domain.CodeNotFound) {
			s.logger.InfoContext(ctx, "login rejected", "reason", "unknown phone")
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.InfoContext(ctx, "login rejected", "user_id", user.ID, "reason", "password mismatch")
		return nil, invalidCredentials()
	}

	res, err := s.Issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return res, nil
}

// Logout revokes the token id until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return domain.NewError(domain.CodeUnauthorized, "token has no id")
	}
	if err := s.revocations.Revoke(ctx, jti, expiresAt.Sub(s.clock())); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "token revoked", "jti", jti)
	return nil
}

// Issue signs a token carrying sub, role, jti, iat and exp.
func (s *AuthService) Issue(user *domain.User) (*ports.AuthResult, error) {
	if s.privateKey == nil {
		return nil, domain.WrapError(errors.New("no signing key configured"), domain.CodeInternal, "token signing failed")
	}
	now := s.clock()
	exp := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return nil, domain.WrapError(err, domain.CodeInternal, "token signing failed")
	}
	return &ports.AuthResult{
		Token:     signed,
		Role:      user.Role,
		UserID:    user.ID,
		ExpiresAt: time.Unix(exp.Unix(), 0).UTC(),
	}, nil
}

func invalidCredentials() error {
	return domain.NewError(domain.CodeUnauthorized, "invalid credentials")
}

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", domain.WrapError(err, domain.CodeInternal, "password hashing failed")
	}
	return string(h), nil
}
