package handler

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/raktsetu/blood-request-service/internal/adapters/cache"
	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
	"github.com/raktsetu/blood-request-service/internal/core/ports/mocks"
	"github.com/raktsetu/blood-request-service/internal/metrics"
)

var routerKey = func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}()

type RouterSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	auth         *mocks.MockAuthService
	registration *mocks.MockRegistrationService
	requests     *mocks.MockRequestService
	rewards      *mocks.MockRewardService
	donors       *mocks.MockDonorService
	revocations  *cache.MemoryRevocationStore
	router       http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auth = mocks.NewMockAuthService(s.ctrl)
	s.registration = mocks.NewMockRegistrationService(s.ctrl)
	s.requests = mocks.NewMockRequestService(s.ctrl)
	s.rewards = mocks.NewMockRewardService(s.ctrl)
	s.donors = mocks.NewMockDonorService(s.ctrl)
	s.revocations = cache.NewMemoryRevocationStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	s.router = NewRouter(RouterDeps{
		Auth:           NewAuthHandler(s.auth, logger),
		Registration:   NewRegistrationHandler(s.registration, logger),
		Requests:       NewRequestHandler(s.requests, logger),
		Donations:      NewDonationHandler(s.rewards, logger),
		Donors:         NewDonorHandler(s.donors, logger),
		Health:         NewHealthHandler(map[string]Pinger{"postgres": PingFunc(func(_ context.Context) error { return nil })}, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(&routerKey.PublicKey, s.revocations, logger),
		Metrics:        metrics.New(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})
}

func (s *RouterSuite) token(userID string, role domain.Role) string {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"jti":  "jti-" + userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(routerKey)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (s *RouterSuite) TestCreateRequest() {
	limit := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.requests.EXPECT().
		Create(gomock.Any(), "client-1", domain.NewRequestInput{
			BloodType:       domain.BloodTypeOPos,
			HospitalName:    "City Hospital",
			LocationDetails: "Ward 4",
			TimeLimit:       limit,
			Urgency:         domain.UrgencyHigh,
		}).
		Return(&domain.BloodRequest{ID: "req-1", Status: domain.StatusActive}, nil)

	rec := s.do(http.MethodPost, "/blood-requests", s.token("client-1", domain.RoleClient), map[string]any{
		"bloodType":       "O+",
		"hospitalName":    "City Hospital",
		"locationDetails": "Ward 4",
		"timeLimit":       limit,
		"urgency":         "high",
	})

	s.Equal(http.StatusCreated, rec.Code)
	got := decode[domain.BloodRequest](s.T(), rec)
	s.Equal("req-1", got.ID)
}

func (s *RouterSuite) TestCreateRequestValidationError() {
	s.requests.EXPECT().Create(gomock.Any(), "client-1", gomock.Any()).
		Return(nil, domain.NewError(domain.CodeValidation, "missing required fields: hospitalName"))

	rec := s.do(http.MethodPost, "/blood-requests", s.token("client-1", domain.RoleClient), map[string]any{"bloodType": "A+"})

	s.Equal(http.StatusBadRequest, rec.Code)
	got := decode[errorResponse](s.T(), rec)
	s.Equal("validation_error", got.Error)
	s.Contains(got.Description, "hospitalName")
}

func (s *RouterSuite) TestCreateRequestRejectsDonorsAndAnonymous() {
	rec := s.do(http.MethodPost, "/blood-requests", s.token("donor-1", domain.RoleDonor), map[string]any{})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/blood-requests", "", map[string]any{})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/blood-requests", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+s.token("client-1", domain.RoleClient))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation_error", decode[errorResponse](s.T(), rec).Error)
}

func (s *RouterSuite) TestListDispatchesByRole() {
	s.requests.EXPECT().ListForClient(gomock.Any(), "client-1").
		Return([]*domain.BloodRequest{{ID: "a"}, {ID: "b"}}, nil)
	rec := s.do(http.MethodGet, "/blood-requests", s.token("client-1", domain.RoleClient), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(decode[[]domain.BloodRequest](s.T(), rec), 2)

	s.requests.EXPECT().ListForDonor(gomock.Any(), "donor-1").
		Return([]domain.DonorRequestView{{BloodRequest: &domain.BloodRequest{ID: "c"}, Compatible: true}}, nil)
	rec = s.do(http.MethodGet, "/blood-requests", s.token("donor-1", domain.RoleDonor), nil)
	s.Equal(http.StatusOK, rec.Code)
	views := decode[[]map[string]any](s.T(), rec)
	s.Require().Len(views, 1)
	s.Equal("c", views[0]["id"])
	s.Equal(true, views[0]["compatible"])
}

func (s *RouterSuite) TestListForDonorWithoutDetails() {
	s.requests.EXPECT().ListForDonor(gomock.Any(), "donor-1").
		Return(nil, domain.NewError(domain.CodePrecondition, "please complete your donor profile first"))

	rec := s.do(http.MethodGet, "/blood-requests", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("precondition_failed", decode[errorResponse](s.T(), rec).Error)
}

func (s *RouterSuite) TestGetPassesActor() {
	s.requests.EXPECT().
		Get(gomock.Any(), domain.Actor{UserID: "client-2", Role: domain.RoleClient}, "req-9").
		Return(nil, domain.NewError(domain.CodeForbidden, "not your request"))

	rec := s.do(http.MethodGet, "/blood-requests/req-9", s.token("client-2", domain.RoleClient), nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterSuite) TestAccept() {
	s.requests.EXPECT().Accept(gomock.Any(), "donor-1", "req-1").
		Return(&domain.BloodRequest{ID: "req-1", ConfirmedDonors: []string{"donor-1"}}, nil)

	rec := s.do(http.MethodPost, "/blood-requests/req-1/accept", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusOK, rec.Code)
	got := decode[acceptResponse](s.T(), rec)
	s.Equal("Request accepted successfully.", got.Message)
	s.Equal([]string{"donor-1"}, got.Request.ConfirmedDonors)
}

func (s *RouterSuite) TestAcceptErrors() {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"incompatible", domain.NewError(domain.CodeIncompatible, "blood type not compatible"), http.StatusForbidden},
		{"already accepted", domain.NewError(domain.CodeAlreadyAccepted, "already accepted"), http.StatusBadRequest},
		{"not found", domain.NewError(domain.CodeNotFound, "request not found"), http.StatusNotFound},
		{"store down", domain.NewError(domain.CodeTransient, "storage unavailable"), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.requests.EXPECT().Accept(gomock.Any(), "donor-1", "req-1").Return(nil, tc.err)
			rec := s.do(http.MethodPost, "/blood-requests/req-1/accept", s.token("donor-1", domain.RoleDonor), nil)
			s.Equal(tc.status, rec.Code)
		})
	}
}

func (s *RouterSuite) TestTransientErrorSetsRetryAfter() {
	s.requests.EXPECT().MarkArrived(gomock.Any(), "donor-1", "req-1").
		Return(domain.NewError(domain.CodeTransient, "notification failed"))

	rec := s.do(http.MethodPost, "/blood-requests/req-1/arrived", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal("1", rec.Header().Get("Retry-After"))
}

func (s *RouterSuite) TestInternalErrorHidesDetail() {
	s.requests.EXPECT().MarkArrived(gomock.Any(), "donor-1", "req-1").
		Return(errors.New("pq: relation does not exist"))

	rec := s.do(http.MethodPost, "/blood-requests/req-1/arrived", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusInternalServerError, rec.Code)
	got := decode[errorResponse](s.T(), rec)
	s.Equal("internal", got.Error)
	s.NotContains(rec.Body.String(), "pq:")
}

func (s *RouterSuite) TestArrived() {
	s.requests.EXPECT().MarkArrived(gomock.Any(), "donor-1", "req-1").Return(nil)

	rec := s.do(http.MethodPost, "/blood-requests/req-1/arrived", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("The requester has been notified of your arrival.", decode[messageResponse](s.T(), rec).Message)
}

func (s *RouterSuite) TestCancel() {
	s.requests.EXPECT().Cancel(gomock.Any(), "client-1", "req-1").
		Return(&domain.BloodRequest{ID: "req-1", Status: domain.StatusCancelled}, nil)

	rec := s.do(http.MethodPut, "/blood-requests/req-1/cancel", s.token("client-1", domain.RoleClient), nil)

	s.Equal(http.StatusOK, rec.Code)
	got := decode[cancelResponse](s.T(), rec)
	s.Equal(domain.StatusCancelled, got.Status)

	rec = s.do(http.MethodPut, "/blood-requests/req-1/cancel", s.token("donor-1", domain.RoleDonor), nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterSuite) TestCompleteDonation() {
	s.rewards.EXPECT().CompleteDonation(gomock.Any(), "donor-1", "req-1", gomock.Any()).
		DoAndReturn(func(_ any, _, _ string, arrival *int) (*domain.CompletionResult, error) {
			s.Require().NotNil(arrival)
			s.Equal(20, *arrival)
			return &domain.CompletionResult{TokensAwarded: 55, TotalTokens: 55, Title: domain.TitleNewHero}, nil
		})

	rec := s.do(http.MethodPost, "/donations/complete/req-1", s.token("donor-1", domain.RoleDonor), map[string]any{"arrivalTime": 20})

	s.Equal(http.StatusOK, rec.Code)
	got := decode[map[string]any](s.T(), rec)
	s.Equal("Donation recorded successfully!", got["message"])
	s.EqualValues(55, got["tokensAwarded"])
}

func (s *RouterSuite) TestCompleteDonationWithoutBody() {
	s.rewards.EXPECT().CompleteDonation(gomock.Any(), "donor-1", "req-1", (*int)(nil)).
		Return(nil, domain.NewError(domain.CodeAlreadyCompleted, "donation already recorded"))

	rec := s.do(http.MethodPost, "/donations/complete/req-1", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusConflict, rec.Code)
}

func (s *RouterSuite) TestRewards() {
	next := domain.TitleRisingHero
	s.rewards.EXPECT().Rewards(gomock.Any(), "donor-1").
		Return(&domain.RewardSummary{Donations: 1, Tokens: 40, Title: domain.TitleNewHero, NextTitle: &next}, nil)

	rec := s.do(http.MethodGet, "/donations/rewards", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusOK, rec.Code)
	got := decode[domain.RewardSummary](s.T(), rec)
	s.Equal(40, got.Tokens)
	s.Equal(domain.TitleRisingHero, *got.NextTitle)

	rec = s.do(http.MethodGet, "/donations/rewards", s.token("client-1", domain.RoleClient), nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterSuite) TestDonorDetails() {
	age := 30
	s.donors.EXPECT().Details(gomock.Any(), "donor-1").
		Return(&domain.DonorDetails{Age: &age, BloodGroup: domain.BloodTypeBPos, DetailsSubmitted: true}, nil)

	rec := s.do(http.MethodGet, "/users/donor-details", s.token("donor-1", domain.RoleDonor), nil)

	s.Equal(http.StatusOK, rec.Code)
	s.True(decode[domain.DonorDetails](s.T(), rec).DetailsSubmitted)
}

func (s *RouterSuite) TestUpdateDonorDetails() {
	want := domain.DonorProfile{Age: 30, Weight: 70, BloodGroup: domain.BloodTypeBPos, HealthInfo: []string{}}
	s.donors.EXPECT().UpdateDetails(gomock.Any(), "donor-1", want).
		Return(&domain.DonorDetails{BloodGroup: domain.BloodTypeBPos, DetailsSubmitted: true}, nil)

	rec := s.do(http.MethodPut, "/users/donor-details", s.token("donor-1", domain.RoleDonor), map[string]any{
		"age": 30, "weight": 70, "bloodGroup": "B+", "healthInfo": []string{},
	})

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Donor details updated successfully.", decode[donorDetailsResponse](s.T(), rec).Message)
}

func (s *RouterSuite) TestUpdateDonorDetailsMissingFields() {
	rec := s.do(http.MethodPut, "/users/donor-details", s.token("donor-1", domain.RoleDonor), map[string]any{"age": 30})

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(decode[errorResponse](s.T(), rec).Description, "missing required fields")
}

func (s *RouterSuite) TestSignup() {
	s.registration.EXPECT().
		Signup(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, in ports.SignupInput) (*ports.AuthResult, error) {
			s.Equal(domain.RoleDonor, in.Role)
			s.Require().NotNil(in.Donor)
			s.Equal(25, in.Donor.Age)
			s.Equal(domain.BloodTypeONeg, in.Donor.BloodGroup)
			return &ports.AuthResult{Token: "tok", Role: domain.RoleDonor, UserID: "u-1"}, nil
		})

	rec := s.do(http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "Asha", "phoneNumber": "9000000001", "password": "secret1",
		"role": "donor", "age": 25, "weight": 60, "bloodGroup": "O-",
	})

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("tok", decode[ports.AuthResult](s.T(), rec).Token)
}

func (s *RouterSuite) TestSignupClientIgnoresDonorFields() {
	s.registration.EXPECT().
		Signup(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, in ports.SignupInput) (*ports.AuthResult, error) {
			s.Nil(in.Donor)
			return nil, domain.NewError(domain.CodeConflict, "user already exists")
		})

	rec := s.do(http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "Ravi", "phoneNumber": "9000000002", "password": "secret1", "role": "client", "age": 40,
	})

	s.Equal(http.StatusConflict, rec.Code)
}

func (s *RouterSuite) TestLogin() {
	s.auth.EXPECT().Login(gomock.Any(), "9000000001", "wrong").
		Return(nil, domain.NewError(domain.CodeUnauthorized, "invalid credentials"))

	rec := s.do(http.MethodPost, "/auth/login", "", map[string]any{"phoneNumber": "9000000001", "password": "wrong"})

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("unauthorized", decode[errorResponse](s.T(), rec).Error)
}

func (s *RouterSuite) TestLogoutRevokesToken() {
	tok := s.token("donor-1", domain.RoleDonor)
	s.auth.EXPECT().Logout(gomock.Any(), "jti-donor-1", gomock.Any()).
		DoAndReturn(func(ctx context.Context, jti string, exp time.Time) error {
			return s.revocations.Revoke(ctx, jti, time.Until(exp))
		})

	rec := s.do(http.MethodPost, "/auth/logout", tok, nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/donations/rewards", tok, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	rec := s.do(http.MethodGet, "/health/ready", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "blood_request_http_requests_total")
}

func (s *RouterSuite) TestUnknownRoute() {
	rec := s.do(http.MethodGet, "/nope", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHealthHandler(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
		"broker":   nil,
	}, logger)

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	got := decode[readyResponse](t, rec)
	assert.Equal(t, "DOWN", got.Status)
	assert.Equal(t, "UP", got.Checks["postgres"].Status)
	assert.Equal(t, "DOWN", got.Checks["redis"].Status)
	assert.Equal(t, "DOWN", got.Checks["broker"].Status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(domain.CodeAlreadyCompleted))
	assert.Equal(t, http.StatusForbidden, StatusFor(domain.CodeIncompatible))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.Code("mystery")))
}
