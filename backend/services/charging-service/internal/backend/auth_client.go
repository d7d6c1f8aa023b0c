package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
)

// AuthClient signs in against auth-service and keeps the issued tokens in a
// kvstore so they survive restarts. Requests sent through Do carry the access
// token and are retried once after a refresh when the server answers 401.
type AuthClient struct {
	base   *baseClient
	store  kvstore.Store
	logger *zap.Logger

	refreshMu sync.Mutex
}

// NewAuthClient returns a client for the auth-service at baseURL.
func NewAuthClient(baseURL string, client HTTPDoer, store kvstore.Store, logger *zap.Logger) *AuthClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthClient{
		base:   newBaseClient(baseURL, client),
		store:  store,
		logger: logger,
	}
}

type tokenPair struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user,omitempty"`
}

// Signin exchanges credentials for tokens and stores them.
func (a *AuthClient) Signin(ctx context.Context, phoneNumber, password string) error {
	body, err := json.Marshal(map[string]string{
		"phoneNumber": phoneNumber,
		"password":    password,
	})
	if err != nil {
		return err
	}

	status, resp, err := a.base.do(ctx, http.MethodPost, "/auth/signin", body, nil)
	if err != nil {
		return fmt.Errorf("backend: signin: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: signin status %d: %s", ErrUnauthorized, status, errorMessage(resp))
	}
	return a.storeTokens(ctx, resp)
}

// Token returns the stored access token.
func (a *AuthClient) Token(ctx context.Context) (string, error) {
	token, ok, err := a.store.Get(ctx, kvstore.KeyToken)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}

// Refresh trades the stored refresh token for a new pair. Any failure clears
// the stored credentials.
func (a *AuthClient) Refresh(ctx context.Context) error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	refresh, ok, err := a.store.Get(ctx, kvstore.KeyRefreshToken)
	if err != nil {
		return err
	}
	if !ok || refresh == "" {
		a.Clear(ctx)
		return ErrUnauthorized
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		return err
	}
	status, resp, err := a.base.do(ctx, http.MethodPost, "/auth/refresh", body, nil)
	if err != nil || status != http.StatusOK {
		a.logger.Warn("token refresh failed", zap.Int("status", status), zap.Error(err))
		a.Clear(ctx)
		return ErrUnauthorized
	}
	return a.storeTokens(ctx, resp)
}

// Clear removes every stored credential.
func (a *AuthClient) Clear(ctx context.Context) {
	for _, key := range []string{kvstore.KeyToken, kvstore.KeyRefreshToken, kvstore.KeyUser} {
		if err := a.store.Delete(ctx, key); err != nil {
			a.logger.Warn("failed to clear credential", zap.String("key", key), zap.Error(err))
		}
	}
}

// Do sends an authenticated request through base.
func (a *AuthClient) Do(ctx context.Context, base *baseClient, method, path string, body []byte) (int, []byte, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, resp, err := base.do(ctx, method, path, body, bearer(token))
	if err != nil || status != http.StatusUnauthorized {
		return status, resp, err
	}

	if err := a.Refresh(ctx); err != nil {
		return status, resp, err
	}
	token, err = a.Token(ctx)
	if err != nil {
		return 0, nil, err
	}
	status, resp, err = base.do(ctx, method, path, body, bearer(token))
	if err == nil && status == http.StatusUnauthorized {
		return status, resp, ErrUnauthorized
	}
	return status, resp, err
}

func (a *AuthClient) storeTokens(ctx context.Context, resp []byte) error {
	var pair tokenPair
	if err := json.Unmarshal(resp, &pair); err != nil {
		return fmt.Errorf("backend: decode tokens: %w", err)
	}
	if pair.Token == "" {
		return errors.New("backend: token missing in response")
	}
	if err := a.store.Set(ctx, kvstore.KeyToken, pair.Token); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		if err := a.store.Set(ctx, kvstore.KeyRefreshToken, pair.RefreshToken); err != nil {
			return err
		}
	}
	if len(pair.User) > 0 {
		if err := a.store.Set(ctx, kvstore.KeyUser, string(pair.User)); err != nil {
			return err
		}
	}
	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(body)
}
