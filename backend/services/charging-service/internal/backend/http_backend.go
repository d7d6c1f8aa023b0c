package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// HTTPBackend confirms sessions with a remote charging-service.
type HTTPBackend struct {
	base *baseClient
	auth *AuthClient
}

// NewHTTPBackend returns a backend talking to baseURL with credentials from auth.
func NewHTTPBackend(baseURL string, client HTTPDoer, auth *AuthClient) *HTTPBackend {
	return &HTTPBackend{base: newBaseClient(baseURL, client), auth: auth}
}

// ConfirmStart implements SessionBackend.
func (b *HTTPBackend) ConfirmStart(ctx context.Context, siteID, gunID string) (Token, error) {
	body, err := json.Marshal(map[string]string{"siteId": siteID, "gunId": gunID})
	if err != nil {
		return "", err
	}

	status, resp, err := b.auth.Do(ctx, b.base, http.MethodPost, "/backend/sessions", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("%w: start status %d: %s", ErrRejected, status, errorMessage(resp))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", fmt.Errorf("backend: decode start response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("backend: empty session token")
	}
	return Token(out.Token), nil
}

// ConfirmStop implements SessionBackend.
func (b *HTTPBackend) ConfirmStop(ctx context.Context, token Token) (models.Receipt, error) {
	path := fmt.Sprintf("/backend/sessions/%s/stop", url.PathEscape(string(token)))
	status, resp, err := b.auth.Do(ctx, b.base, http.MethodPost, path, []byte("{}"))
	if err != nil {
		return models.Receipt{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return models.Receipt{}, ErrUnknownToken
	case status != http.StatusOK:
		return models.Receipt{}, fmt.Errorf("%w: stop status %d: %s", ErrRejected, status, errorMessage(resp))
	}

	var receipt models.Receipt
	if err := json.Unmarshal(resp, &receipt); err != nil {
		return models.Receipt{}, fmt.Errorf("backend: decode receipt: %w", err)
	}
	return receipt, nil
}
