package tracking

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"kucukaslan/activity/domain"
	"kucukaslan/activity/enrich"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/session"
)

const sessionLocalsKey = "activity.session"

// Config controls the session cookie and identity lookup.
type Config struct {
	CookieAge    time.Duration
	SecureCookie bool
	// UserID returns the authenticated user of c, or "". Nil means anonymous.
	UserID func(c *fiber.Ctx) string
	// StatusOf maps a handler error to its response status. Nil honours *fiber.Error only.
	StatusOf func(err error) int
}

// Middleware builds per-route tracking handlers. It holds no per-request state.
type Middleware struct {
	recorder Recorder
	resolver *session.Resolver
	cfg      Config
	now      func() time.Time
}

func New(recorder Recorder, resolver *session.Resolver, cfg Config) *Middleware {
	if cfg.UserID == nil {
		cfg.UserID = func(*fiber.Ctx) string { return "" }
	}
	if cfg.StatusOf == nil {
		cfg.StatusOf = fiberStatus
	}
	return &Middleware{
		recorder: recorder,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Session resolves the session of every request passing through it and sets the
// cookie when a new id is minted.
func (m *Middleware) Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.ensureSession(c)
		return c.Next()
	}
}

// SessionID returns the id resolved for c by Session or Track, or "".
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionLocalsKey).(string)
	return id
}

func (m *Middleware) ensureSession(c *fiber.Ctx) string {
	if id := SessionID(c); id != "" {
		return id
	}
	// fiber reuses request buffers; the id outlives the request
	id, minted := m.resolver.Resolve(utils.CopyString(c.Cookies(session.CookieName)))
	if minted {
		c.Cookie(session.Cookie(id, m.cfg.CookieAge, m.cfg.SecureCookie))
		logging.Ctx(c.UserContext()).Debug().Str("session_id", id).Msg("session minted")
	}
	c.Locals(sessionLocalsKey, id)
	c.SetUserContext(logging.ContextWithSessionID(c.UserContext(), id))
	return id
}

// Track returns a handler that records one activityType event for every completed
// request of the route. Register it before the route handler.
func (m *Middleware) Track(activityType domain.ActivityType, opts ...Option) fiber.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *fiber.Ctx) (err error) {
		start := m.now()
		sessionID := m.ensureSession(c)

		origin := enrich.Origin(c)
		draft := domain.Event{
			UserID:       m.cfg.UserID(c),
			SessionID:    sessionID,
			IPAddress:    origin.IPAddress,
			UserAgent:    origin.UserAgent,
			ActivityType: activityType,
			ActivityData: maps.Clone(o.activityData),
			Page:         origin.Page,
			Device:       origin.Device,
			Location:     map[string]any{},
			Status:       domain.ResolveStatus("", o.errDetail),
			Metadata:     origin.Metadata,
		}
		if draft.ActivityData == nil {
			draft.ActivityData = map[string]any{}
		}
		if o.errDetail != nil {
			detail := *o.errDetail
			draft.Error = &detail
		}
		draft.Page.Title = o.pageTitle
		maps.Copy(draft.Metadata, o.metadata)
		if o.productParam != "" {
			draft.ProductID = utils.CopyString(c.Params(o.productParam))
		}
		if o.orderParam != "" {
			draft.OrderID = utils.CopyString(c.Params(o.orderParam))
		}

		t := newTracker(context.WithoutCancel(c.UserContext()), m.recorder, draft, start)
		c.Locals(localsKey, t)

		defer func() {
			if r := recover(); r != nil {
				t.Abort()
				panic(r)
			}
		}()

		err = c.Next()

		if c.UserContext().Err() != nil {
			t.Abort()
			return err
		}
		if err != nil && !t.Done() {
			t.SetError(errorDetail(m.cfg.StatusOf(err), err))
		}
		t.Finalize()
		return err
	}
}

func fiberStatus(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func errorDetail(code int, err error) domain.ErrorDetail {
	severity := "medium"
	if code >= fiber.StatusInternalServerError {
		severity = "high"
	}
	return domain.ErrorDetail{
		Message:  err.Error(),
		Code:     strconv.Itoa(code),
		Severity: severity,
	}
}

// Option configures a tracked route.
type Option func(*options)

type options struct {
	pageTitle    string
	activityData map[string]any
	metadata     map[string]any
	productParam string
	orderParam   string
	errDetail    *domain.ErrorDetail
}

func WithPageTitle(title string) Option {
	return func(o *options) { o.pageTitle = title }
}

// WithActivityData seeds activityData; each request gets its own copy.
func WithActivityData(data map[string]any) Option {
	return func(o *options) { o.activityData = data }
}

// WithMetadata adds keys to metadata next to the method and headers.
func WithMetadata(md map[string]any) Option {
	return func(o *options) { o.metadata = md }
}

// WithProductParam takes productId from the named route parameter.
func WithProductParam(name string) Option {
	return func(o *options) { o.productParam = name }
}

// WithOrderParam takes orderId from the named route parameter.
func WithOrderParam(name string) Option {
	return func(o *options) { o.orderParam = name }
}

// WithError marks every event of the route as a failure.
func WithError(detail domain.ErrorDetail) Option {
	return func(o *options) { o.errDetail = &detail }
}
