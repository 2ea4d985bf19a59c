package domain

import (
	"time"

	"github.com/goccy/go-json"
)

// TrackRequest is a client-reported event as accepted by the track endpoint.
// Identity and network context come from the request, never from the body.
type TrackRequest struct {
	ActivityType string         `json:"activityType" validate:"required" example:"product_view"`
	ActivityData map[string]any `json:"activityData"`
	Page         *Page          `json:"page"`
	Device       *Device        `json:"device"`
	Performance  *Performance   `json:"performance"`
	Location     map[string]any `json:"location"`
	ProductID    Ref            `json:"productId" swaggertype:"string" example:"17"`
	OrderID      Ref            `json:"orderId" swaggertype:"string"`
	Error        *ErrorDetail   `json:"error"`
	Status       string         `json:"status" example:"success"`
}

// BulkEvent is one item of an administrative import. Unlike TrackRequest it carries
// its own identity, network context and optionally its original timestamp.
type BulkEvent struct {
	TrackRequest
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId" validate:"required"`
	IPAddress string         `json:"ipAddress" validate:"required,max=45"`
	UserAgent string         `json:"userAgent" validate:"required"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp *time.Time     `json:"timestamp"`
}

// BulkTrackRequest keeps items raw so one malformed item cannot fail the whole batch.
type BulkTrackRequest struct {
	Events []json.RawMessage `json:"events" swaggertype:"array,object"`
}

// Origin is the server-observed context of a request: who sent it and from where.
type Origin struct {
	UserID    string
	SessionID string
	IPAddress string
	UserAgent string
	Page      Page
	Device    Device
	Metadata  map[string]any
}

// SortOrder orders results by timestamp, ties broken by id.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// EventFilter selects events. Zero fields do not constrain.
type EventFilter struct {
	UserID       string
	SessionID    string
	ProductID    string
	OrderID      string
	ActivityType ActivityType
	Since        time.Time // inclusive
	Before       time.Time // exclusive
}

// IsEmpty reports whether f matches every event.
func (f EventFilter) IsEmpty() bool {
	return f == EventFilter{}
}

// Matches evaluates f against a single event.
func (f EventFilter) Matches(e *Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.ProductID != "" && e.ProductID != f.ProductID {
		return false
	}
	if f.OrderID != "" && e.OrderID != f.OrderID {
		return false
	}
	if f.ActivityType != "" && e.ActivityType != f.ActivityType {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Before.IsZero() && !e.Timestamp.Before(f.Before) {
		return false
	}
	return true
}

type FindOptions struct {
	Sort   SortOrder
	Limit  int // 0 means no limit
	Offset int
}

// HistoryQuery pages through one user's events, newest first.
type HistoryQuery struct {
	UserID       string
	ActivityType ActivityType
	Page         int
	Limit        int
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
	DefaultPopularLimit = 10
	MaxPopularLimit     = 100
)

// Window is the half-open interval [Start, End). A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Filter converts w to an EventFilter.
func (w Window) Filter() EventFilter {
	return EventFilter{Since: w.Start, Before: w.End}
}

// PurgeFilter selects events for administrative deletion. At least one field must be set.
type PurgeFilter struct {
	UserID    string    `json:"userId" example:"42"`
	SessionID string    `json:"sessionId"`
	Before    time.Time `json:"before"`
}

func (p PurgeFilter) Filter() EventFilter {
	return EventFilter{UserID: p.UserID, SessionID: p.SessionID, Before: p.Before}
}
