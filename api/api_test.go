package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kucukaslan/activity/auth"
	"kucukaslan/activity/config"
	"kucukaslan/activity/database"
	"kucukaslan/activity/directory"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/services"
	"kucukaslan/activity/session"
)

const testUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memDeduper) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memDeduper) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

type testServer struct {
	app    *fiber.App
	store  *database.MemoryStore
	ingest *services.IngestService
	auth   *auth.Authenticator
}

func newTestServer(t *testing.T, dir domain.Directory) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Ingest.FlushIntervalSeconds = 1
	cfg.Ingest.FlushRetryDelay = 0

	store := database.NewMemoryStore()
	ingest, err := services.NewIngestService(store, &memDeduper{seen: map[string]bool{}}, nil, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ingest.Shutdown() })

	analytics, err := services.NewAnalyticsService(store, dir)
	require.NoError(t, err)
	retention, err := services.NewRetentionService(store, cfg.Tracking.RetentionDays)
	require.NoError(t, err)

	authenticator := auth.New(cfg.Auth)
	app := NewApp(Deps{
		Config:    cfg,
		Ingest:    ingest,
		Analytics: analytics,
		Retention: retention,
		Auth:      authenticator,
		Health:    &HealthChecker{Store: store},
	})
	return &testServer{app: app, store: store, ingest: ingest, auth: authenticator}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := s.auth.GenerateToken(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderUserAgent, testUA)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func bearer(tok string) map[string]string {
	return map[string]string{fiber.HeaderAuthorization: "Bearer " + tok}
}

// drain stops the batcher so every accepted event is in the store.
func (s *testServer) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, s.ingest.Shutdown())
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestTrackStoresEventAndSetsCookie(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, http.MethodPost, "/api/activities/track",
		`{"activityType":"product_view","productId":17,"page":{"title":"Submariner"}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var tr domain.TrackResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.True(t, tr.Success)
	assert.Equal(t, "Activity tracked successfully", tr.Message)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, tr.SessionID, cookie.Value)

	s.drain(t)
	events, err := s.store.Find(context.Background(), domain.EventFilter{SessionID: cookie.Value}, domain.FindOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ProductView, events[0].ActivityType)
	assert.Equal(t, "17", events[0].ProductID)
	assert.Equal(t, "Submariner", events[0].Page.Title)
	assert.Equal(t, testUA, events[0].UserAgent)
	assert.NotZero(t, events[0].ID)
}

func TestTrackReusesSessionCookie(t *testing.T) {
	s := newTestServer(t, nil)
	headers := map[string]string{fiber.HeaderCookie: session.CookieName + "=sess_existing"}

	resp, body := s.do(t, http.MethodPost, "/api/activities/track", `{"activityType":"page_view"}`, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Nil(t, sessionCookie(resp))

	s.drain(t)
	n, err := s.store.Count(context.Background(), domain.EventFilter{SessionID: "sess_existing"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTrackSchemaViolations(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty body", "", "body"},
		{"malformed", `{"activityType":`, "body"},
		{"missing type", `{}`, "activityType"},
		{"unknown type", `{"activityType":"teleport"}`, "activityType"},
		{"bad status", `{"activityType":"page_view","status":"exploded"}`, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, "/api/activities/track", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

			var er domain.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &er))
			assert.False(t, er.Success)
			assert.Equal(t, tt.field, er.Field)
			assert.NotEmpty(t, er.Message)
		})
	}

	s.drain(t)
	assert.Zero(t, s.store.Len())
}

func TestTrackIdempotencyKey(t *testing.T) {
	s := newTestServer(t, nil)
	headers := map[string]string{HeaderIdempotencyKey: "checkout-click-1"}

	resp, _ := s.do(t, http.MethodPost, "/api/activities/track", `{"activityType":"cart_checkout_start"}`, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/activities/track", `{"activityType":"cart_checkout_start"}`, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "already tracked")

	headers[HeaderIdempotencyKey] = strings.Repeat("k", 256)
	resp, _ = s.do(t, http.MethodPost, "/api/activities/track", `{"activityType":"cart_checkout_start"}`, headers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	s.drain(t)
	assert.Equal(t, 1, s.store.Len())
}

func TestTrackAfterShutdownIsUnavailable(t *testing.T) {
	s := newTestServer(t, nil)
	s.drain(t)

	resp, body := s.do(t, http.MethodPost, "/api/activities/track", `{"activityType":"page_view"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, string(body))
}

func TestBulkRequiresAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	payload := `{"events":[
		{"sessionId":"sess_a","ipAddress":"10.0.0.1","userAgent":"curl/8.4.0","activityType":"page_view"},
		{"sessionId":"sess_a","ipAddress":"10.0.0.1","userAgent":"curl/8.4.0","activityType":"nope"}
	]}`

	resp, _ := s.do(t, http.MethodPost, "/api/activities/bulk", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/activities/bulk", payload, bearer(s.token(t, "42", "customer")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/activities/bulk", payload, bearer(s.token(t, "1", "admin")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var br domain.BulkEventResponse
	require.NoError(t, json.Unmarshal(body, &br))
	assert.Equal(t, 2, br.TotalCount)
	assert.Equal(t, 1, br.SuccessCount)
	require.Len(t, br.Failures, 1)
	assert.Equal(t, 1, br.Failures[0].Index)
	assert.Equal(t, "activityType", br.Failures[0].Field)
	assert.Equal(t, 1, s.store.Len())
}

func seed(t *testing.T, store *database.MemoryStore, events ...domain.Event) {
	t.Helper()
	_, err := store.InsertMany(context.Background(), events)
	require.NoError(t, err)
}

func stored(id int64, typ domain.ActivityType, userID, sessionID string, ts time.Time) domain.Event {
	return domain.Event{
		ID:           id,
		UserID:       userID,
		SessionID:    sessionID,
		IPAddress:    "10.0.0.1",
		UserAgent:    testUA,
		ActivityType: typ,
		Status:       domain.StatusSuccess,
		ActivityData: map[string]any{},
		Location:     map[string]any{},
		Metadata:     map[string]any{},
		Timestamp:    ts,
	}
}

func TestUserHistoryAccess(t *testing.T) {
	s := newTestServer(t, nil)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seed(t, s.store,
		stored(1, domain.PageView, "42", "sess_1", base),
		stored(2, domain.ProductView, "42", "sess_1", base.Add(time.Minute)),
		stored(3, domain.PageView, "43", "sess_2", base),
	)

	resp, _ := s.do(t, http.MethodGet, "/api/activities/user/42", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/activities/user/42", "", bearer(s.token(t, "43", "customer")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/activities/user/42?limit=1", "", bearer(s.token(t, "42", "customer")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var hr domain.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &hr))
	require.Len(t, hr.Activities, 1)
	assert.Equal(t, int64(2), hr.Activities[0].ID)
	assert.Equal(t, int64(2), hr.Pagination.Total)

	resp, body = s.do(t, http.MethodGet, "/api/activities/user/42?activityType=page_view", "", bearer(s.token(t, "1", "admin")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &hr))
	require.Len(t, hr.Activities, 1)
	assert.Equal(t, domain.PageView, hr.Activities[0].ActivityType)

	resp, body = s.do(t, http.MethodGet, "/api/activities/user/42?page=abc", "", bearer(s.token(t, "42", "customer")))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"field":"page"`)
}

func TestStatsAndErrors(t *testing.T) {
	s := newTestServer(t, nil)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	failure := stored(3, domain.ErrorOccurred, "", "sess_2", base.Add(time.Hour))
	failure.Error = &domain.ErrorDetail{Message: "checkout timeout", Severity: "high"}
	failure.Status = domain.StatusFailed
	seed(t, s.store,
		stored(1, domain.PageView, "42", "sess_1", base),
		stored(2, domain.PageView, "", "sess_2", base.Add(time.Minute)),
		failure,
	)
	admin := bearer(s.token(t, "1", "admin"))

	resp, _ := s.do(t, http.MethodGet, "/api/activities/stats", "", bearer(s.token(t, "42", "customer")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/activities/stats?start=2026-05-01T00:00:00Z&end="+fmt.Sprint(base.Add(30*time.Minute).Unix()), "", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sr domain.StatsResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	require.Len(t, sr.Stats, 1)
	assert.Equal(t, domain.PageView, sr.Stats[0].ActivityType)
	assert.Equal(t, uint64(2), sr.Stats[0].Count)
	assert.Equal(t, uint64(2), sr.Stats[0].UniqueSessions)

	resp, body = s.do(t, http.MethodGet, "/api/activities/stats?start=yesterday", "", admin)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"field":"start"`)

	resp, body = s.do(t, http.MethodGet, "/api/activities/errors", "", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var er domain.ErrorStatsResponse
	require.NoError(t, json.Unmarshal(body, &er))
	require.Len(t, er.Errors, 1)
	assert.Equal(t, "checkout timeout", er.Errors[0].Message)
}

func TestOrderTimelineOwnership(t *testing.T) {
	dir := &directory.Static{
		OrderSummaries: map[string]domain.OrderSummary{"7": {ID: "7", OrderNumber: "LW-7"}},
		Owners:         map[domain.EntityKind]map[string]string{domain.KindOrder: {"7": "42"}},
	}
	s := newTestServer(t, dir)
	created := stored(1, domain.OrderCreate, "42", "sess_1", time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	created.OrderID = "7"
	seed(t, s.store, created)

	resp, body := s.do(t, http.MethodGet, "/api/activities/order/7", "", bearer(s.token(t, "42", "customer")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "LW-7")

	resp, _ = s.do(t, http.MethodGet, "/api/activities/order/7", "", bearer(s.token(t, "43", "customer")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/activities/order/8", "", bearer(s.token(t, "42", "customer")))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminCleanupAndPurge(t *testing.T) {
	s := newTestServer(t, nil)
	now := time.Now().UTC()
	seed(t, s.store,
		stored(1, domain.PageView, "42", "sess_1", now.AddDate(0, 0, -40)),
		stored(2, domain.PageView, "42", "sess_1", now.Add(-time.Hour)),
		stored(3, domain.PageView, "43", "sess_2", now.Add(-time.Hour)),
	)
	admin := bearer(s.token(t, "1", "admin"))

	resp, _ := s.do(t, http.MethodPost, "/api/admin/activities/cleanup?days=30", "", bearer(s.token(t, "42", "customer")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/admin/activities/cleanup?days=30", "", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var cr domain.CleanupResponse
	require.NoError(t, json.Unmarshal(body, &cr))
	assert.Equal(t, int64(1), cr.DeletedCount)

	resp, body = s.do(t, http.MethodPost, "/api/admin/activities/purge", `{}`, admin)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = s.do(t, http.MethodPost, "/api/admin/activities/purge", `{"userId":"43"}`, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &cr))
	assert.Equal(t, int64(1), cr.DeletedCount)
	assert.Equal(t, 1, s.store.Len())
}

func TestSessionEndpointIsTracked(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, http.MethodGet, "/api/session", "", bearer(s.token(t, "42", "customer")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sr SessionResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.NotEmpty(t, sr.SessionID)
	assert.Equal(t, "42", sr.UserID)

	s.drain(t)
	events, err := s.store.Find(context.Background(), domain.EventFilter{SessionID: sr.SessionID}, domain.FindOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.PageView, events[0].ActivityType)
	assert.Equal(t, "42", events[0].UserID)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var hr domain.HealthResponse
	require.NoError(t, json.Unmarshal(body, &hr))
	assert.Equal(t, "healthy", hr.Status)
	assert.Equal(t, "disabled", hr.Services.Redis.Status)
	assert.Equal(t, "closed", hr.Ingest.BreakerState)

	require.NoError(t, s.store.Close())
	resp, body = s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &hr))
	assert.Equal(t, "unhealthy", hr.Status)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealthDegradedByOptionalDependency(t *testing.T) {
	h := &HealthChecker{Store: database.NewMemoryStore(), Redis: failingPinger{}}
	app := fiber.New()
	app.Get("/health", h.Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var hr domain.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hr))
	assert.Equal(t, "degraded", hr.Status)
	assert.Equal(t, "unhealthy", hr.Services.Redis.Status)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.SchemaViolation{Field: "x", Reason: "y"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrForbidden), http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{services.ErrBufferFull, http.StatusServiceUnavailable},
		{services.ErrBatcherStopped, http.StatusServiceUnavailable},
		{&domain.QueryError{Op: "find", Err: errors.New("boom")}, http.StatusInternalServerError},
		{fiber.NewError(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestErrorHandlerHidesInternalCause(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/q", func(*fiber.Ctx) error {
		return &domain.QueryError{Op: "stats", Err: errors.New("password=hunter2 rejected")}
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/q", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "hunter2")
	assert.Contains(t, string(body), "query stats failed")
}
