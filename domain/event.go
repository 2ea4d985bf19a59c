package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Status is the outcome recorded on an event.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// Device classes reported by the enricher and the browser mirror.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	Unknown       = "Unknown"
)

// Event is one immutable record of an observed user or system action.
type Event struct {
	ID           int64          `json:"id" example:"1861230987347415040"`
	UserID       string         `json:"userId,omitempty" example:"42"`
	SessionID    string         `json:"sessionId" example:"sess_01JAB3C4D5E6F7G8H9J0KMNPQR"`
	IPAddress    string         `json:"ipAddress" example:"203.0.113.7"`
	UserAgent    string         `json:"userAgent" example:"Mozilla/5.0"`
	ActivityType ActivityType   `json:"activityType" swaggertype:"string" example:"product_view"`
	ActivityData map[string]any `json:"activityData"`
	ProductID    string         `json:"productId,omitempty" example:"17"`
	OrderID      string         `json:"orderId,omitempty"`
	Page         Page           `json:"page"`
	Device       Device         `json:"device"`
	Location     map[string]any `json:"location"`
	Performance  Performance    `json:"performance"`
	Error        *ErrorDetail   `json:"error,omitempty"`
	Status       Status         `json:"status" swaggertype:"string" example:"success"`
	Metadata     map[string]any `json:"metadata"`
	Timestamp    time.Time      `json:"timestamp"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

type Page struct {
	URL      string `json:"url" example:"/api/products/17"`
	Title    string `json:"title" example:"Submariner Date"`
	Referrer string `json:"referrer" example:"https://www.google.com/"`
	Path     string `json:"path" example:"/api/products/17"`
}

type Device struct {
	Type             string `json:"type" example:"desktop"`
	Browser          string `json:"browser" example:"Chrome"`
	OS               string `json:"os" example:"macOS"`
	UserAgent        string `json:"userAgent,omitempty"`
	ScreenResolution string `json:"screenResolution" example:"1920x1080"`
	Language         string `json:"language" example:"en"`
	Timezone         string `json:"timezone" example:"UTC"`
}

// Performance timings in milliseconds. Nil means not measured.
type Performance struct {
	PageLoadTime    *float64 `json:"pageLoadTime,omitempty" example:"812.5"`
	APIResponseTime *float64 `json:"apiResponseTime,omitempty" example:"12.3"`
}

type ErrorDetail struct {
	Message  string `json:"message" example:"payment gateway timeout"`
	Stack    string `json:"stack,omitempty"`
	Code     string `json:"code,omitempty" example:"GATEWAY_TIMEOUT"`
	Severity string `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical" example:"high"`
}

// NewEvent fixes the identity and lifetime of a validated draft. A zero Timestamp
// takes now; a timestamp already present (bulk imports) is kept. ExpiresAt is derived
// from the final Timestamp here and never recomputed.
func NewEvent(draft Event, id int64, now time.Time, horizon time.Duration) Event {
	e := draft
	e.ID = id
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.Timestamp = e.Timestamp.UTC()
	e.ExpiresAt = e.Timestamp.Add(horizon)
	return e
}

// ResolveStatus applies the defaulting rule: an explicit status wins, otherwise an
// attached error means failed and anything else success.
func ResolveStatus(explicit Status, errDetail *ErrorDetail) Status {
	if explicit != "" {
		return explicit
	}
	if errDetail != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// Ref is a weak reference to a storefront entity. Clients send ids either as JSON
// numbers or strings; both decode to the same textual form.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("reference must be a string or a number")
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("reference must be an integer, got %s", n)
	}
	*r = Ref(n.String())
	return nil
}

func (r Ref) String() string { return string(r) }
