package api

import (
	"github.com/gofiber/fiber/v2"
)

type ActivityHandler interface {
	Track(ctx *fiber.Ctx) error
	TrackBulk(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
}

type AnalyticsHandler interface {
	UserHistory(ctx *fiber.Ctx) error
	Journey(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	PopularProducts(ctx *fiber.Ctx) error
	Errors(ctx *fiber.Ctx) error
	OrderTimeline(ctx *fiber.Ctx) error
}

type AdminHandler interface {
	Cleanup(ctx *fiber.Ctx) error
	Purge(ctx *fiber.Ctx) error
}
