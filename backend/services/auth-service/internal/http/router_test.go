package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/http/handlers"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/models"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/password"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/repository"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/service"
)

type userStore struct {
	mu    sync.Mutex
	users []*models.User
}

func (s *userStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = int64(len(s.users) + 1)
	stored := *user
	s.users = append(s.users, &stored)
	return nil
}

func (s *userStore) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *userStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || int(id) > len(s.users) {
		return nil, repository.ErrUserNotFound
	}
	found := *s.users[id-1]
	return &found, nil
}

func newTestRouter(limiter *RateLimiter) http.Handler {
	tokens := service.NewTokenService("test-secret", time.Minute, time.Hour)
	svc := service.NewAuthService(&userStore{}, password.NewBcryptHasher(bcrypt.MinCost), tokens, zap.NewNop())
	return NewRouter(Routes{
		Signup:  handlers.NewSignupHandler(svc),
		Signin:  handlers.NewSigninHandler(svc),
		Refresh: handlers.NewRefreshHandler(svc),
		Health:  handlers.NewHealthHandler(),
	}, limiter)
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthFlow(t *testing.T) {
	h := newTestRouter(nil)
	creds := map[string]string{"phoneNumber": "0911234567", "password": "longenough"}

	rec := post(t, h, "/auth/signup", map[string]string{"phoneNumber": "0911234567", "fullName": "Hana", "password": "longenough"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = post(t, h, "/auth/signup", map[string]string{"phoneNumber": "0911234567", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(t, h, "/auth/signup", map[string]string{"phoneNumber": "0922222222", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/auth/signin", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess struct {
		Token        string       `json:"token"`
		RefreshToken string       `json:"refreshToken"`
		User         *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.Token)
	assert.NotEmpty(t, sess.RefreshToken)
	require.NotNil(t, sess.User)
	assert.Equal(t, "Hana", sess.User.FullName)

	rec = post(t, h, "/auth/signin", map[string]string{"phoneNumber": "0911234567", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h, "/auth/refresh", map[string]string{"refreshToken": sess.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, "/auth/refresh", map[string]string{"refreshToken": sess.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	h := newTestRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/signin", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestSigninIsRateLimited(t *testing.T) {
	h := newTestRouter(NewRateLimiter(1, 2, time.Minute))
	creds := map[string]string{"phoneNumber": "0911234567", "password": "wrongpass"}

	assert.Equal(t, http.StatusUnauthorized, post(t, h, "/auth/signin", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, post(t, h, "/auth/signin", creds).Code)
	rec := post(t, h, "/auth/signin", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// signup is not throttled
	rec = post(t, h, "/auth/signup", map[string]string{"phoneNumber": "0933333333", "password": "longenough"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	l := NewRateLimiter(1, 1, time.Minute)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "clients are limited independently")

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("a"))
	l.mu.Lock()
	assert.Len(t, l.clients, 1)
	l.mu.Unlock()
}
