package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/handlers"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/middleware"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/repository"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/service"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/ws"
)

const secret = "router-secret"

// stillClock never ticks, so balances stay put during the request flow.
type stillClock struct{}

func (stillClock) Now() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

func (stillClock) NewTicker(time.Duration) session.Ticker { return stillTicker{} }

type stillTicker struct{}

func (stillTicker) C() <-chan time.Time { return nil }
func (stillTicker) Stop()               {}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	dir := directory.NewMemory(directory.DemoStations()...)
	sim := backend.NewSimulated(0, logger)
	svc := service.NewChargingService(dir, sim, repository.NewMemoryHistory(), kvstore.NewMemory(), service.Options{
		Session:        session.Config{AccrualRateKWhPerSecond: 0.01, TickInterval: time.Second, FallbackPricePerKWh: 15},
		DefaultBalance: 1000,
		Clock:          stillClock{},
	}, logger)
	t.Cleanup(svc.Close)

	return NewRouter(RouterDeps{
		Stations:      handlers.NewStationsHandlers(dir, logger),
		Charging:      handlers.NewChargingHandlers(svc, ws.NewServer(ws.NewManager(), time.Second, nil, logger), logger),
		Backend:       handlers.NewBackendHandlers(backend.NewSimulated(0, logger), logger),
		HealthHandler: handlers.NewHealthHandler(),
	}, middleware.AuthMiddleware(secret), middleware.RequestLogger(logger))
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	return bearerAs(t, userID, "driver")
}

func bearerAs(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"typ":     "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestStationsRoutes(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/stations?mode=dc&availability=available", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stations := decode(t, rr)["stations"].([]any)
	assert.Len(t, stations, 2)

	rr = do(t, h, http.MethodGet, "/stations?mode=xx", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/stations/2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", decode(t, rr)["id"])

	rr = do(t, h, http.MethodGet, "/stations/404", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestChargingFlow(t *testing.T) {
	h := newTestRouter(t)
	auth := bearer(t, 7)

	rr := do(t, h, http.MethodPost, "/charging/sessions", "", map[string]string{"siteId": "1", "gunId": "DC-001"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodPost, "/charging/sessions", auth, map[string]string{"siteId": "1", "gunId": "NOPE"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/charging/sessions", auth, map[string]string{"siteId": "1", "gunId": "DC-001"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode(t, rr)
	id := created["id"].(string)
	assert.Equal(t, "pre-charging", created["state"])

	rr = do(t, h, http.MethodGet, "/charging/sessions/"+id, bearer(t, 8), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/charging/sessions/"+id+"/stop", auth, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/charging/sessions/"+id+"/start", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "charging", decode(t, rr)["state"])

	rr = do(t, h, http.MethodPost, "/charging/sessions/"+id+"/stop", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	stopped := decode(t, rr)
	assert.Equal(t, "post-charging", stopped["state"])
	assert.NotNil(t, stopped["receipt"])

	rr = do(t, h, http.MethodGet, "/charging/history", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	records := decode(t, rr)["records"].([]any)
	require.Len(t, records, 1)

	rr = do(t, h, http.MethodGet, "/charging/history/"+id+"/receipt", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))

	rr = do(t, h, http.MethodPost, "/charging/sessions/"+id+"/reset", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/wallet", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1000.0, decode(t, rr)["balance"])
}

func TestUnavailableConnectorCarriesNotice(t *testing.T) {
	h := newTestRouter(t)
	auth := bearer(t, 7)

	rr := do(t, h, http.MethodPost, "/charging/sessions", auth, map[string]string{"siteId": "3", "gunId": "DC-003"})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode(t, rr)
	assert.Equal(t, "error", created["state"])
	id := created["id"].(string)

	rr = do(t, h, http.MethodPost, "/charging/sessions/"+id+"/start", auth, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodDelete, "/charging/sessions/"+id, auth, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBackendRoutes(t *testing.T) {
	h := newTestRouter(t)
	auth := bearer(t, 7)

	rr := do(t, h, http.MethodPost, "/backend/sessions", auth, map[string]string{"siteId": "1", "gunId": "DC-001"})
	require.Equal(t, http.StatusCreated, rr.Code)
	token := decode(t, rr)["token"].(string)

	rr = do(t, h, http.MethodPost, "/backend/sessions", auth, map[string]string{"siteId": "1", "gunId": "DC-001"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/backend/sessions/"+token+"/stop", auth, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, token, decode(t, rr)["token"])

	rr = do(t, h, http.MethodPost, "/backend/sessions/"+token+"/stop", auth, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOperatorSetsConnectorStatus(t *testing.T) {
	h := newTestRouter(t)
	path := "/stations/1/connectors/DC-001/status"
	body := map[string]string{"status": "Maintenance"}

	rr := do(t, h, http.MethodPut, path, bearer(t, 7), body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	op := bearerAs(t, 1, RoleOperator)
	rr = do(t, h, http.MethodPut, path, op, map[string]string{"status": "broken"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPut, "/stations/1/connectors/NOPE/status", op, body)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPut, path, op, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "maintenance", decode(t, rr)["status"])

	rr = do(t, h, http.MethodPost, "/charging/sessions", bearer(t, 7), map[string]string{"siteId": "1", "gunId": "DC-001"})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode(t, rr)
	assert.Equal(t, "error", created["state"])
	assert.Equal(t, "ConnectorUnavailable", created["failure"])
}
