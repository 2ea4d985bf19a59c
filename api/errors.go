package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/services"
)

// StatusOf maps an error returned by a handler to its HTTP status.
func StatusOf(err error) int {
	var (
		fe     *fiber.Error
		schema *domain.SchemaViolation
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &schema):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrBufferFull), errors.Is(err, services.ErrBatcherStopped):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every handler error in the ErrorResponse envelope.
// Server-side failures are logged with the request id and hide their cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusOf(err)
	resp := domain.ErrorResponse{Success: false, Message: err.Error()}

	var schema *domain.SchemaViolation
	if errors.As(err, &schema) {
		resp.Field = schema.Field
	}

	log := logging.Ctx(c.UserContext())
	switch {
	case code >= fiber.StatusInternalServerError:
		log.Error().Err(err).Int("status", code).Str("path", c.Path()).Msg("request failed")
		if code == fiber.StatusInternalServerError {
			resp.Message = "internal server error"
			var qe *domain.QueryError
			if errors.As(err, &qe) {
				resp.Message = "query " + qe.Op + " failed"
			}
		}
	default:
		log.Debug().Err(err).Int("status", code).Str("path", c.Path()).Msg("request rejected")
	}

	return c.Status(code).JSON(resp)
}
