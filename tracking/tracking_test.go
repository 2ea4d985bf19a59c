package tracking

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kucukaslan/activity/domain"
	"kucukaslan/activity/session"
)

const testUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fakeRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeRecorder) Record(_ context.Context, e domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeRecorder) all() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

func newApp(rec *fakeRecorder) (*fiber.App, *Middleware) {
	m := New(rec, session.NewResolver(), Config{
		UserID: func(c *fiber.Ctx) string { return utils.CopyString(c.Get("X-Test-User")) },
	})
	app := fiber.New()
	app.Use(recover.New())
	return app, m
}

func get(t *testing.T, app *fiber.App, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", testUA)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestNewVisitorGetsSession(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/products", m.Track(domain.PageView), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp := get(t, app, "/products", nil)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, strings.HasPrefix(cookie.Value, session.Prefix))
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	resp = get(t, app, "/products", cookie)
	assert.Nil(t, sessionCookie(resp), "an existing session is not re-issued")

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, cookie.Value, events[0].SessionID)
	assert.Equal(t, cookie.Value, events[1].SessionID)
	assert.Equal(t, domain.PageView, events[0].ActivityType)
	assert.Equal(t, "Chrome", events[0].Device.Browser)
	assert.Equal(t, "/products", events[0].Page.Path)
	assert.Equal(t, "GET", events[0].Metadata["method"])
}

func TestResponseTimeCaptured(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	const work = 30 * time.Millisecond
	app.Get("/slow", m.Track(domain.ProductSearch), func(c *fiber.Ctx) error {
		time.Sleep(work)
		return c.JSON(fiber.Map{"results": []string{}})
	})

	get(t, app, "/slow", nil)
	events := rec.all()
	require.Len(t, events, 1)
	rt := events[0].Performance.APIResponseTime
	require.NotNil(t, rt)
	assert.GreaterOrEqual(t, *rt, float64(work/time.Millisecond))
	assert.Less(t, *rt, float64(work/time.Millisecond)+1000)
}

func TestResponseUnchanged(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	handler := func(c *fiber.Ctx) error {
		c.Set("X-Custom", "yes")
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": 1})
	}
	app.Get("/plain", handler)
	app.Get("/tracked", m.Track(domain.OrderCreate), handler)

	plain := get(t, app, "/plain", nil)
	tracked := get(t, app, "/tracked", nil)

	assert.Equal(t, plain.StatusCode, tracked.StatusCode)
	assert.Equal(t, plain.Header.Get("X-Custom"), tracked.Header.Get("X-Custom"))
	assert.Equal(t, plain.Header.Get("Content-Type"), tracked.Header.Get("Content-Type"))
	pb, _ := io.ReadAll(plain.Body)
	tb, _ := io.ReadAll(tracked.Body)
	assert.Equal(t, pb, tb)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/twice", m.Track(domain.CartView), func(c *fiber.Ctx) error {
		tr := FromCtx(c)
		assert.True(t, tr.Finalize())
		assert.False(t, tr.Finalize())
		return c.SendString("sent")
	})

	get(t, app, "/twice", nil)
	assert.Len(t, rec.all(), 1)
}

func TestFinalizedEventIsDetached(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/early", m.Track(domain.ProductView), func(c *fiber.Ctx) error {
		tr := FromCtx(c)
		variant := map[string]any{"size": "40mm"}
		tr.Put("a", 1.0)
		tr.Put("variant", variant)
		assert.True(t, tr.Finalize())

		tr.Put("late", "after finalize")
		tr.SetProductID("99")
		tr.SetStatus(domain.StatusCancelled)
		tr.SetError(domain.ErrorDetail{Message: "too late"})
		variant["size"] = "41mm"
		return c.SendString("ok")
	})

	get(t, app, "/early", nil)
	events := rec.all()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, map[string]any{"a": 1.0, "variant": map[string]any{"size": "40mm"}}, e.ActivityData)
	assert.Empty(t, e.ProductID)
	assert.Equal(t, domain.StatusSuccess, e.Status)
	assert.Nil(t, e.Error)
}

func TestPanicEmitsNothing(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/boom", m.Track(domain.PageView), func(c *fiber.Ctx) error {
		panic("handler exploded")
	})

	resp := get(t, app, "/boom", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, rec.all())
}

func TestCancelledRequestEmitsNothing(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/gone", m.Track(domain.PageView), func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(c.UserContext())
		cancel()
		c.SetUserContext(ctx)
		return c.SendString("late")
	})

	get(t, app, "/gone", nil)
	assert.Empty(t, rec.all())
}

func TestHandlerErrorMarksFailure(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/orders/:id", m.Track(domain.OrderUpdate, WithOrderParam("id")), func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	})

	resp := get(t, app, "/orders/77", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.StatusFailed, events[0].Status)
	require.NotNil(t, events[0].Error)
	assert.Equal(t, "404", events[0].Error.Code)
	assert.Equal(t, "77", events[0].OrderID)
}

func TestOptionsAndHandlerEnrichment(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/products/:id", m.Track(domain.ProductView,
		WithProductParam("id"),
		WithPageTitle("Product detail"),
		WithActivityData(map[string]any{"source": "catalog"}),
		WithMetadata(map[string]any{"route": "product"}),
	), func(c *fiber.Ctx) error {
		FromCtx(c).Put("price", 10250)
		return c.SendString("watch")
	})

	req := httptest.NewRequest(http.MethodGet, "/products/17", nil)
	req.Header.Set("User-Agent", testUA)
	req.Header.Set("X-Test-User", "42")
	_, err := app.Test(req, -1)
	require.NoError(t, err)

	get(t, app, "/products/18", nil)

	events := rec.all()
	require.Len(t, events, 2)
	e := events[0]
	assert.Equal(t, "17", e.ProductID)
	assert.Equal(t, "42", e.UserID)
	assert.Equal(t, "Product detail", e.Page.Title)
	assert.Equal(t, "catalog", e.ActivityData["source"])
	assert.Equal(t, 10250, e.ActivityData["price"])
	assert.Equal(t, "product", e.Metadata["route"])
	assert.Equal(t, domain.StatusSuccess, e.Status)

	assert.Equal(t, "18", events[1].ProductID)
	assert.Empty(t, events[1].UserID)
}

func TestWithErrorRoute(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Get("/checkout", m.Track(domain.PaymentFailed, WithError(domain.ErrorDetail{Message: "card declined", Severity: "high"})),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusPaymentRequired) })

	get(t, app, "/checkout", nil)
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.StatusFailed, events[0].Status)
	assert.Equal(t, "card declined", events[0].Error.Message)
}

func TestSessionMiddleware(t *testing.T) {
	rec := &fakeRecorder{}
	app, m := newApp(rec)
	app.Use(m.Session())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.Nil(t, FromCtx(c), "untracked routes have no tracker")
		return c.SendString(SessionID(c))
	})

	resp := get(t, app, "/whoami", &http.Cookie{Name: session.CookieName, Value: "sess_known"})
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "sess_known", string(body))
	assert.Empty(t, rec.all())
}

func TestTrackerNeverNegative(t *testing.T) {
	rec := &fakeRecorder{}
	tr := newTracker(context.Background(), rec, domain.Event{ActivityData: map[string]any{}}, time.Now())
	tr.since = func(time.Time) time.Duration { return -5 * time.Millisecond }
	require.True(t, tr.Finalize())

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, 0.0, *events[0].Performance.APIResponseTime)
}

func TestAbortThenFinalize(t *testing.T) {
	rec := &fakeRecorder{}
	tr := newTracker(context.Background(), rec, domain.Event{}, time.Now())
	tr.Abort()
	assert.False(t, tr.Finalize())
	assert.Empty(t, rec.all())

	var nilTracker *Tracker
	nilTracker.SetProductID("1")
	assert.False(t, nilTracker.Finalize())
}
