package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/goccy/go-json"

	"kucukaslan/activity/auth"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/enrich"
	"kucukaslan/activity/tracking"
	"kucukaslan/activity/validations"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKey    = 255
)

var _ ActivityHandler = &activityHandler{}

type activityHandler struct {
	ingest domain.IngestService
}

func NewActivityHandler(ingest domain.IngestService) ActivityHandler {
	return &activityHandler{ingest: ingest}
}

// decodeBody reads JSON whatever the declared content type. The decoder copies
// the input, so nothing aliases fiber's request buffer afterwards.
func decodeBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return &domain.SchemaViolation{Field: "body", Reason: "is required"}
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return &domain.SchemaViolation{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}
	return nil
}

// Track records a client-reported activity
// @Summary Track an activity
// @Description Record one storefront activity. Identity, network and device context come from the request; the body describes what happened. A session cookie is issued to new visitors.
// @Tags Activities
// @Accept json
// @Produce json
// @Param activity body domain.TrackRequest true "Activity"
// @Param Idempotency-Key header string false "Client retry key; a repeated key is acknowledged without a second event"
// @Success 200 {object} domain.TrackResponse "Activity tracked"
// @Failure 400 {object} domain.ErrorResponse "Schema violation"
// @Failure 503 {object} domain.ErrorResponse "Service unavailable (buffer full)"
// @Router /api/activities/track [post]
func (h *activityHandler) Track(c *fiber.Ctx) error {
	var req domain.TrackRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	key := utils.CopyString(c.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKey {
		return &domain.SchemaViolation{Field: HeaderIdempotencyKey, Reason: "must be at most 255 characters"}
	}

	origin := enrich.Origin(c)
	origin.UserID = auth.UserID(c)
	origin.SessionID = tracking.SessionID(c)

	draft, err := validations.BuildEvent(&req, origin)
	if err != nil {
		return err
	}

	resp, err := h.ingest.Track(c.UserContext(), draft, key)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// TrackBulk imports activities in one request
// @Summary Bulk import activities
// @Description Administrative import. Every item carries its own session, network context and optional timestamp. Items are validated one by one; valid items are stored even when others fail.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param events body domain.BulkTrackRequest true "Activities to import"
// @Success 200 {object} domain.BulkEventResponse "Per-item outcome"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 401 {object} domain.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} domain.ErrorResponse "Admin role required"
// @Router /api/activities/bulk [post]
func (h *activityHandler) TrackBulk(c *fiber.Ctx) error {
	var req domain.BulkTrackRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	resp, err := h.ingest.TrackBulk(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// SessionResponse reports the resolved session.
type SessionResponse struct {
	Success   bool   `json:"success" example:"true"`
	SessionID string `json:"sessionId" example:"sess_01JAB3C4D5E6F7G8H9J0KMNPQR"`
	UserID    string `json:"userId,omitempty" example:"42"`
}

// Session returns the caller's session id
// @Summary Resolve the current session
// @Description Returns the session id bound to the caller, minting one for new visitors. The call itself is tracked as a page view.
// @Tags Activities
// @Produce json
// @Success 200 {object} api.SessionResponse
// @Router /api/session [get]
func (h *activityHandler) Session(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(SessionResponse{
		Success:   true,
		SessionID: tracking.SessionID(c),
		UserID:    auth.UserID(c),
	})
}
