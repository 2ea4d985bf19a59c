package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"kucukaslan/activity/auth"
	"kucukaslan/activity/domain"
)

var _ AnalyticsHandler = &analyticsHandler{}

type analyticsHandler struct {
	analytics domain.AnalyticsService
	auth      *auth.Authenticator
}

func NewAnalyticsHandler(analytics domain.AnalyticsService, authenticator *auth.Authenticator) AnalyticsHandler {
	return &analyticsHandler{analytics: analytics, auth: authenticator}
}

// queryInt parses an optional integer query parameter.
func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &domain.SchemaViolation{Field: name, Reason: "must be a non-negative integer"}
	}
	return n, nil
}

// parseTime accepts RFC 3339 or unix seconds.
func parseTime(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

func queryWindow(c *fiber.Ctx) (domain.Window, error) {
	var w domain.Window
	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{{"start", &w.Start}, {"end", &w.End}} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, ok := parseTime(raw)
		if !ok {
			return domain.Window{}, &domain.SchemaViolation{Field: bound.name, Reason: "must be RFC 3339 or unix seconds"}
		}
		*bound.dst = t
	}
	return w, nil
}

// UserHistory pages through a user's activities
// @Summary User activity history
// @Description Activities of one user, newest first, with referenced products and orders joined. Callers see their own history; admins see anyone's.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User id"
// @Param page query int false "Page number (1-based)" default(1)
// @Param limit query int false "Page size" default(50)
// @Param activityType query string false "Only this activity type"
// @Success 200 {object} domain.HistoryResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/activities/user/{userId} [get]
func (h *analyticsHandler) UserHistory(c *fiber.Ctx) error {
	userID := utils.CopyString(c.Params("userId"))
	if auth.UserID(c) != userID && !h.auth.IsAdmin(c) {
		return domain.ErrForbidden
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", domain.DefaultHistoryLimit)
	if err != nil {
		return err
	}

	resp, err := h.analytics.UserHistory(c.UserContext(), domain.HistoryQuery{
		UserID:       userID,
		ActivityType: domain.ActivityType(utils.CopyString(c.Query("activityType"))),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Journey returns a session's activities in order
// @Summary Session journey
// @Description Every activity of a session, oldest first, with the acting user joined.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Success 200 {object} domain.JourneyResponse
// @Failure 401 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/activities/journey/{sessionId} [get]
func (h *analyticsHandler) Journey(c *fiber.Ctx) error {
	resp, err := h.analytics.Journey(c.UserContext(), utils.CopyString(c.Params("sessionId")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Stats aggregates activities per type
// @Summary Activity statistics
// @Description Count, distinct users and distinct sessions per activity type within [start, end).
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param start query string false "Inclusive lower bound, RFC 3339 or unix seconds"
// @Param end query string false "Exclusive upper bound, RFC 3339 or unix seconds"
// @Success 200 {object} domain.StatsResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/activities/stats [get]
func (h *analyticsHandler) Stats(c *fiber.Ctx) error {
	w, err := queryWindow(c)
	if err != nil {
		return err
	}
	resp, err := h.analytics.ActivityStats(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// PopularProducts ranks products by interactions
// @Summary Popular products
// @Description Products ranked by the number of activities referencing them, with views, cart adds and wishlist adds broken out.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of products" default(10)
// @Success 200 {object} domain.PopularProductsResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/activities/popular-products [get]
func (h *analyticsHandler) PopularProducts(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", domain.DefaultPopularLimit)
	if err != nil {
		return err
	}
	resp, err := h.analytics.PopularProducts(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Errors groups reported errors by message
// @Summary Error statistics
// @Description error_occurred activities grouped by message with the most recent severity and time.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param start query string false "Inclusive lower bound, RFC 3339 or unix seconds"
// @Param end query string false "Exclusive upper bound, RFC 3339 or unix seconds"
// @Success 200 {object} domain.ErrorStatsResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/activities/errors [get]
func (h *analyticsHandler) Errors(c *fiber.Ctx) error {
	w, err := queryWindow(c)
	if err != nil {
		return err
	}
	resp, err := h.analytics.ErrorStats(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// OrderTimeline lists the activities of one order
// @Summary Order timeline
// @Description Activities referencing an order, oldest first. Visible to the order owner and admins.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order id"
// @Success 200 {object} domain.OrderTimelineResponse
// @Failure 401 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/activities/order/{orderId} [get]
func (h *analyticsHandler) OrderTimeline(c *fiber.Ctx) error {
	resp, err := h.analytics.OrderTimeline(c.UserContext(), utils.CopyString(c.Params("orderId")), auth.UserID(c), h.auth.IsAdmin(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
