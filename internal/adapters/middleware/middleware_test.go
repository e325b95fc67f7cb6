package middleware

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports/mocks"
	"github.com/raktsetu/blood-request-service/internal/metrics"
)

var signingKey = func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(signingKey)
	require.NoError(t, err)
	return s
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
		"jti":  "jti-1",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

type AuthMiddlewareSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	revocations *mocks.MockTokenRevocationStore
	router      chi.Router
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.revocations = mocks.NewMockTokenRevocationStore(s.ctrl)
	auth := NewAuthMiddleware(&signingKey.PublicKey, s.revocations, discardLogger())

	s.router = chi.NewRouter()
	s.router.Use(auth.Authenticate)
	s.router.With(auth.RequireRole(domain.RoleDonor)).Get("/donor", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": UserID(r.Context()),
			"role": Role(r.Context()),
			"jti":  TokenID(r.Context()),
			"exp":  TokenExpiry(r.Context()).Unix(),
		})
	})
	s.router.With(auth.RequireRole(domain.RoleDonor, domain.RoleClient)).Get("/any", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *AuthMiddlewareSuite) do(path, header string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func (s *AuthMiddlewareSuite) TestValidTokenPopulatesContext() {
	s.revocations.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, nil)
	claims := validClaims("donor")

	rec, body := s.do("/donor", "Bearer "+sign(s.T(), claims))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("user-1", body["user"])
	s.Equal("donor", body["role"])
	s.Equal("jti-1", body["jti"])
	s.Equal(float64(claims["exp"].(int64)), body["exp"])
}

func (s *AuthMiddlewareSuite) TestRejections() {
	expired := validClaims("donor")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noRole := validClaims("donor")
	delete(noRole, "role")
	noExp := validClaims("donor")
	delete(noExp, "exp")
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("donor")).SignedString([]byte("secret"))
	s.Require().NoError(err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + sign(s.T(), expired)},
		{"no role", "Bearer " + sign(s.T(), noRole)},
		{"no exp", "Bearer " + sign(s.T(), noExp)},
		{"hmac signed", "Bearer " + hs256},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec, body := s.do("/donor", tt.header)
			s.Equal(http.StatusUnauthorized, rec.Code)
			s.Equal("unauthorized", body["error"])
		})
	}
}

func (s *AuthMiddlewareSuite) TestRevokedToken() {
	s.revocations.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(true, nil)
	rec, body := s.do("/donor", "Bearer "+sign(s.T(), validClaims("donor")))
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Token has been revoked", body["error_description"])
}

func (s *AuthMiddlewareSuite) TestRevocationStoreDown() {
	s.revocations.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, errors.New("dial tcp: refused"))
	rec, body := s.do("/donor", "Bearer "+sign(s.T(), validClaims("donor")))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal("transient", body["error"])
}

func (s *AuthMiddlewareSuite) TestRoleGate() {
	s.revocations.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
	token := "Bearer " + sign(s.T(), validClaims("client"))

	rec, body := s.do("/donor", token)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", body["error"])

	rec, _ = s.do("/any", token)
	s.Equal(http.StatusNoContent, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	t.Run("allowed origin gets headers", func(t *testing.T) {
		h := CORSMiddleware([]string{"https://app.example"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("other origin gets none", func(t *testing.T) {
		h := CORSMiddleware([]string{"https://app.example"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		h := CORSMiddleware([]string{"*"})(next)
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://any.example")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(logger, m))
	r.Get("/blood-requests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blood-requests/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/blood-requests/{id}", line["route"])
	assert.Equal(t, float64(404), line["status"])
	assert.NotEmpty(t, line["request_id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/blood-requests/{id}", "4xx")))
}

func TestActorFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "u-9")
	ctx = context.WithValue(ctx, RoleKey, domain.RoleClient)
	assert.Equal(t, domain.Actor{UserID: "u-9", Role: domain.RoleClient}, Actor(ctx))
	assert.Empty(t, TokenID(context.Background()))
}
