// Package enrich derives device and request context from what a request carries.
// User-agent classification is a first-match heuristic, not a full parser.
package enrich

import (
	"regexp"
	"strings"

	"kucukaslan/activity/domain"
)

var mobileSignature = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

type token struct {
	needle string
	name   string
}

// Edge and Opera UAs also carry "Chrome", so they are matched on their own tokens first.
// Chromium UAs carry "Safari" too, which is why Chrome precedes Safari.
var browsers = []token{
	{"Edg/", "Edge"},
	{"Edge/", "Edge"},
	{"OPR/", "Opera"},
	{"Opera", "Opera"},
	{"Chrome", "Chrome"},
	{"Firefox", "Firefox"},
	{"Safari", "Safari"},
}

// First match wins, so iOS UAs ("like Mac OS X") report macOS and Android UAs report Linux.
var systems = []token{
	{"Windows", "Windows"},
	{"Mac", "macOS"},
	{"Linux", "Linux"},
	{"Android", "Android"},
	{"iOS", "iOS"},
}

// ParseUserAgent classifies ua into device type, browser family and OS family.
func ParseUserAgent(ua string) domain.Device {
	d := domain.Device{
		Type:      domain.DeviceDesktop,
		Browser:   firstMatch(ua, browsers),
		OS:        firstMatch(ua, systems),
		UserAgent: ua,
	}
	if mobileSignature.MatchString(ua) {
		d.Type = domain.DeviceMobile
	}
	return d
}

func firstMatch(ua string, tokens []token) string {
	for _, t := range tokens {
		if strings.Contains(ua, t.needle) {
			return t.name
		}
	}
	return domain.Unknown
}

// ClassifyViewport is the rule the browser-side tracker applies to window.innerWidth.
func ClassifyViewport(width int) string {
	switch {
	case width < 768:
		return domain.DeviceMobile
	case width < 1024:
		return domain.DeviceTablet
	default:
		return domain.DeviceDesktop
	}
}
