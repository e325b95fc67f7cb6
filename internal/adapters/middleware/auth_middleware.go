package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type contextKey string

const (
	UserIDKey      contextKey = "userID"
	RoleKey        contextKey = "role"
	TokenIDKey     contextKey = "jti"
	TokenExpiryKey contextKey = "exp"
)

// AuthMiddleware verifies RS256 bearer tokens and rejects revoked ones.
type AuthMiddleware struct {
	publicKey   *rsa.PublicKey
	revocations ports.TokenRevocationStore
	logger      *slog.Logger
}

func NewAuthMiddleware(publicKey *rsa.PublicKey, revocations ports.TokenRevocationStore, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		publicKey:   publicKey,
		revocations: revocations,
		logger:      logger,
	}
}

type tokenClaims struct {
	userID string
	role   domain.Role
	jti    string
	exp    time.Time
}

// Authenticate stores the caller's id, role, token id and expiry in the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetReqID(ctx)

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			m.logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.parse(raw)
		if err != nil {
			m.logger.WarnContext(ctx, "unauthorized access - invalid token", "request_id", requestID, "error", err)
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "Invalid or expired token")
			return
		}

		revoked, err := m.revocations.IsRevoked(ctx, claims.jti)
		if err != nil {
			// Fail closed when the denylist is unreachable.
			m.logger.ErrorContext(ctx, "revocation check failed", "request_id", requestID, "error", err)
			writeError(w, http.StatusServiceUnavailable, domain.CodeTransient, "Authentication is temporarily unavailable")
			return
		}
		if revoked {
			m.logger.WarnContext(ctx, "unauthorized access - revoked token", "request_id", requestID, "user_id", claims.userID)
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "Token has been revoked")
			return
		}

		ctx = context.WithValue(ctx, UserIDKey, claims.userID)
		ctx = context.WithValue(ctx, RoleKey, claims.role)
		ctx = context.WithValue(ctx, TokenIDKey, claims.jti)
		ctx = context.WithValue(ctx, TokenExpiryKey, claims.exp)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through only for the given roles. It must
// run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Context())
			if !slices.Contains(roles, role) {
				m.logger.WarnContext(r.Context(), "role mismatch",
					"request_id", middleware.GetReqID(r.Context()),
					"required", roles,
					"role", role,
				)
				writeError(w, http.StatusForbidden, domain.CodeForbidden, "Role '"+string(role)+"' is not authorized to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) parse(raw string) (*tokenClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		return m.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, errors.New("missing sub claim")
	}
	role := domain.Role(claimString(claims, "role"))
	if !role.Valid() {
		return nil, errors.New("missing or invalid role claim")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("missing exp claim")
	}
	return &tokenClaims{
		userID: userID,
		role:   role,
		jti:    claimString(claims, "jti"),
		exp:    exp.Time,
	}, nil
}

func claimString(c jwt.MapClaims, key string) string {
	s, _ := c[key].(string)
	return s
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func Role(ctx context.Context) domain.Role {
	role, _ := ctx.Value(RoleKey).(domain.Role)
	return role
}

func TokenID(ctx context.Context) string {
	jti, _ := ctx.Value(TokenIDKey).(string)
	return jti
}

func TokenExpiry(ctx context.Context) time.Time {
	exp, _ := ctx.Value(TokenExpiryKey).(time.Time)
	return exp
}

// Actor returns the authenticated caller.
func Actor(ctx context.Context) domain.Actor {
	return domain.Actor{UserID: UserID(ctx), Role: Role(ctx)}
}
