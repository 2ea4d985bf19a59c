package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRenderedStatus(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusConflict).SendString(err.Error())
		},
	})
	app.Use(Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "bad" {
			return errors.New("duplicate item")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	before := testutil.CollectAndCount(RequestDuration)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/bad", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "duplicate item", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/items/1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// one series per route template and status
	assert.Equal(t, before+2, testutil.CollectAndCount(RequestDuration))
}

func TestHandlerServesRegistry(t *testing.T) {
	EventsPersisted.Add(3)

	app := fiber.New()
	app.Get("/metrics", Handler())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "activity_events_persisted_total")
}
