package enrich

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"kucukaslan/activity/domain"
)

const fallbackIP = "127.0.0.1"

// ClientIP picks the remote address, then the first X-Forwarded-For hop, then loopback.
func ClientIP(remote, forwardedFor string) string {
	if remote = strings.TrimSpace(remote); remote != "" {
		return remote
	}
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return fallbackIP
}

// Origin captures the network, page and transport context of c. Identity fields
// (user and session) are left to the caller. Values are copied out of fiber's
// request buffers so the result may outlive the request.
func Origin(c *fiber.Ctx) domain.Origin {
	ua := header(c, fiber.HeaderUserAgent)
	return domain.Origin{
		IPAddress: ClientIP(utils.CopyString(c.IP()), header(c, fiber.HeaderXForwardedFor)),
		UserAgent: ua,
		Page: domain.Page{
			URL:      utils.CopyString(c.OriginalURL()),
			Referrer: header(c, fiber.HeaderReferer),
			Path:     utils.CopyString(c.Path()),
		},
		Device:   ParseUserAgent(ua),
		Metadata: Metadata(c),
	}
}

// Metadata records the method and the negotiation headers of c.
func Metadata(c *fiber.Ctx) map[string]any {
	return map[string]any{
		"method": utils.CopyString(c.Method()),
		"headers": map[string]any{
			"content-type":    header(c, fiber.HeaderContentType),
			"accept":          header(c, fiber.HeaderAccept),
			"accept-language": header(c, fiber.HeaderAcceptLanguage),
		},
	}
}

func header(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Get(name))
}
