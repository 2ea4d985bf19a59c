package validations

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"kucukaslan/activity/domain"
	"kucukaslan/activity/enrich"
)

// Caps applied to every client-controlled payload.
const (
	MaxMapKeys     = 64
	MaxMapDepth    = 6
	MaxStringBytes = 2048
	MaxLongText    = 16 << 10 // user agent and error stack
	MaxIPLength    = 45
	MaxSessionID   = 255

	// bulk timestamps may run slightly ahead of our clock
	clockSkew = time.Minute
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator. Field names in errors use the json tag.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the struct tags of s and converts the first failure to a SchemaViolation.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domain.SchemaViolation{Field: fieldPath(fe), Reason: describe(fe)}
	}
	return &domain.SchemaViolation{Field: "body", Reason: err.Error()}
}

// fieldPath turns "BulkEvent.TrackRequest.error.severity" into "error.severity".
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	out := parts[:0]
	for _, p := range parts[1:] {
		if p != "" && p[0] >= 'A' && p[0] <= 'Z' {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fe.Field()
	}
	return strings.Join(out, ".")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

// ValidateTrackRequest checks a client-reported event.
func ValidateTrackRequest(req *domain.TrackRequest) error {
	if req == nil {
		return &domain.SchemaViolation{Field: "body", Reason: "is required"}
	}
	if err := ValidateStruct(req); err != nil {
		return err
	}
	if _, ok := domain.ParseActivityType(req.ActivityType); !ok {
		return &domain.SchemaViolation{Field: "activityType", Reason: fmt.Sprintf("unknown activity type %q", req.ActivityType)}
	}
	if req.Status != "" && !domain.Status(req.Status).Valid() {
		return &domain.SchemaViolation{Field: "status", Reason: "must be one of success failed pending cancelled"}
	}
	if req.Performance != nil && req.Performance.PageLoadTime != nil && *req.Performance.PageLoadTime < 0 {
		return &domain.SchemaViolation{Field: "performance.pageLoadTime", Reason: "cannot be negative"}
	}
	if err := checkString("productId", string(req.ProductID), MaxStringBytes); err != nil {
		return err
	}
	if err := checkString("orderId", string(req.OrderID), MaxStringBytes); err != nil {
		return err
	}
	if req.Page != nil {
		if err := checkPage(req.Page); err != nil {
			return err
		}
	}
	if req.Device != nil {
		if err := checkDevice(req.Device); err != nil {
			return err
		}
	}
	if req.Error != nil {
		if err := checkError(req.Error); err != nil {
			return err
		}
	}
	if err := checkMap("activityData", req.ActivityData, 0); err != nil {
		return err
	}
	return checkMap("location", req.Location, 0)
}

// BuildEvent validates req and merges it with the server-observed origin into a draft.
// The draft has no id or timestamps yet.
func BuildEvent(req *domain.TrackRequest, origin domain.Origin) (domain.Event, error) {
	if err := ValidateTrackRequest(req); err != nil {
		return domain.Event{}, err
	}

	e := domain.Event{
		UserID:       origin.UserID,
		SessionID:    origin.SessionID,
		IPAddress:    origin.IPAddress,
		UserAgent:    origin.UserAgent,
		ActivityType: domain.ActivityType(req.ActivityType),
		ActivityData: orEmpty(req.ActivityData),
		ProductID:    req.ProductID.String(),
		OrderID:      req.OrderID.String(),
		Page:         origin.Page,
		Device:       origin.Device,
		Location:     orEmpty(req.Location),
		Error:        req.Error,
		Status:       domain.ResolveStatus(domain.Status(req.Status), req.Error),
		Metadata:     orEmpty(origin.Metadata),
	}

	if p := req.Page; p != nil {
		e.Page.Title = p.Title
		e.Page.URL = firstNonEmpty(p.URL, e.Page.URL)
		e.Page.Referrer = firstNonEmpty(p.Referrer, e.Page.Referrer)
		e.Page.Path = firstNonEmpty(p.Path, e.Page.Path)
	}
	if d := req.Device; d != nil {
		e.Device.Type = firstNonEmpty(d.Type, e.Device.Type)
		e.Device.Browser = firstNonEmpty(d.Browser, e.Device.Browser)
		e.Device.OS = firstNonEmpty(d.OS, e.Device.OS)
		e.Device.ScreenResolution = d.ScreenResolution
		e.Device.Language = d.Language
		e.Device.Timezone = d.Timezone
	}
	e.Device.Type = firstNonEmpty(e.Device.Type, domain.DeviceDesktop)
	e.Device.Browser = firstNonEmpty(e.Device.Browser, domain.Unknown)
	e.Device.OS = firstNonEmpty(e.Device.OS, domain.Unknown)
	e.Device.Language = firstNonEmpty(e.Device.Language, "en")
	e.Device.Timezone = firstNonEmpty(e.Device.Timezone, "UTC")

	if req.Performance != nil {
		// apiResponseTime is server-measured only
		e.Performance.PageLoadTime = req.Performance.PageLoadTime
	}

	return e, ValidateEvent(&e)
}

// BuildBulkEvent validates one item of an administrative import.
func BuildBulkEvent(item *domain.BulkEvent, now time.Time) (domain.Event, error) {
	if item == nil {
		return domain.Event{}, &domain.SchemaViolation{Field: "event", Reason: "is required"}
	}
	if err := ValidateStruct(item); err != nil {
		return domain.Event{}, err
	}
	if err := checkMap("metadata", item.Metadata, 0); err != nil {
		return domain.Event{}, err
	}
	if item.Timestamp != nil && item.Timestamp.After(now.Add(clockSkew)) {
		return domain.Event{}, &domain.SchemaViolation{Field: "timestamp", Reason: "cannot be in the future"}
	}

	origin := domain.Origin{
		UserID:    item.UserID,
		SessionID: item.SessionID,
		IPAddress: item.IPAddress,
		UserAgent: item.UserAgent,
		Device:    enrich.ParseUserAgent(item.UserAgent),
		Metadata:  item.Metadata,
	}
	e, err := BuildEvent(&item.TrackRequest, origin)
	if err != nil {
		return domain.Event{}, err
	}
	if item.Timestamp != nil {
		e.Timestamp = *item.Timestamp
	}
	return e, nil
}

// ValidateEvent checks the invariants every stored event satisfies, whichever path built it.
func ValidateEvent(e *domain.Event) error {
	switch {
	case e.SessionID == "":
		return &domain.SchemaViolation{Field: "sessionId", Reason: "is required"}
	case len(e.SessionID) > MaxSessionID:
		return &domain.SchemaViolation{Field: "sessionId", Reason: fmt.Sprintf("must be at most %d characters", MaxSessionID)}
	case e.IPAddress == "":
		return &domain.SchemaViolation{Field: "ipAddress", Reason: "is required"}
	case len(e.IPAddress) > MaxIPLength:
		return &domain.SchemaViolation{Field: "ipAddress", Reason: fmt.Sprintf("must be at most %d characters", MaxIPLength)}
	case e.UserAgent == "":
		return &domain.SchemaViolation{Field: "userAgent", Reason: "is required"}
	case !e.ActivityType.Valid():
		return &domain.SchemaViolation{Field: "activityType", Reason: fmt.Sprintf("unknown activity type %q", e.ActivityType)}
	case !e.Status.Valid():
		return &domain.SchemaViolation{Field: "status", Reason: "must be one of success failed pending cancelled"}
	case e.ActivityData == nil:
		return &domain.SchemaViolation{Field: "activityData", Reason: "must not be null"}
	case e.Location == nil:
		return &domain.SchemaViolation{Field: "location", Reason: "must not be null"}
	case e.Metadata == nil:
		return &domain.SchemaViolation{Field: "metadata", Reason: "must not be null"}
	}
	if err := checkString("userAgent", e.UserAgent, MaxLongText); err != nil {
		return err
	}
	if err := checkString("userId", e.UserID, MaxStringBytes); err != nil {
		return err
	}
	if err := checkPage(&e.Page); err != nil {
		return err
	}
	if err := checkMap("activityData", e.ActivityData, 0); err != nil {
		return err
	}
	return checkMap("metadata", e.Metadata, 0)
}

func checkPage(p *domain.Page) error {
	for field, v := range map[string]string{
		"page.url": p.URL, "page.title": p.Title, "page.referrer": p.Referrer, "page.path": p.Path,
	} {
		if err := checkString(field, v, MaxStringBytes); err != nil {
			return err
		}
	}
	return nil
}

func checkDevice(d *domain.Device) error {
	for field, v := range map[string]string{
		"device.type": d.Type, "device.browser": d.Browser, "device.os": d.OS,
		"device.screenResolution": d.ScreenResolution, "device.language": d.Language, "device.timezone": d.Timezone,
	} {
		if err := checkString(field, v, MaxStringBytes); err != nil {
			return err
		}
	}
	return nil
}

func checkError(e *domain.ErrorDetail) error {
	if err := checkString("error.message", e.Message, MaxStringBytes); err != nil {
		return err
	}
	if err := checkString("error.code", e.Code, MaxStringBytes); err != nil {
		return err
	}
	if err := checkString("error.severity", e.Severity, MaxStringBytes); err != nil {
		return err
	}
	return checkString("error.stack", e.Stack, MaxLongText)
}

func checkString(field, v string, limit int) error {
	if len(v) > limit {
		return &domain.SchemaViolation{Field: field, Reason: fmt.Sprintf("exceeds %d bytes", limit)}
	}
	return nil
}

// checkMap bounds key count, nesting depth and string length of a decoded JSON object.
func checkMap(field string, m map[string]any, depth int) error {
	if depth > MaxMapDepth {
		return &domain.SchemaViolation{Field: field, Reason: fmt.Sprintf("nested deeper than %d levels", MaxMapDepth)}
	}
	if len(m) > MaxMapKeys {
		return &domain.SchemaViolation{Field: field, Reason: fmt.Sprintf("has more than %d keys", MaxMapKeys)}
	}
	for k, v := range m {
		if err := checkString(field, k, MaxStringBytes); err != nil {
			return err
		}
		if err := checkValue(field+"."+k, v, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(field string, v any, depth int) error {
	switch val := v.(type) {
	case string:
		return checkString(field, val, MaxStringBytes)
	case map[string]any:
		return checkMap(field, val, depth)
	case []any:
		if depth > MaxMapDepth {
			return &domain.SchemaViolation{Field: field, Reason: fmt.Sprintf("nested deeper than %d levels", MaxMapDepth)}
		}
		if len(val) > MaxMapKeys {
			return &domain.SchemaViolation{Field: field, Reason: fmt.Sprintf("has more than %d items", MaxMapKeys)}
		}
		for _, item := range val {
			if err := checkValue(field, item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
