package domain

import (
	"time"

	"kucukaslan/activity/buildinfo"
)

// HealthResponse represents the health status of the service
type HealthResponse struct {
	Status    string              `json:"status" example:"healthy"`
	Timestamp time.Time           `json:"timestamp" example:"2026-01-10T10:00:00Z"`
	BuildInfo buildinfo.Info      `json:"buildInfo"`
	Services  ServiceHealthStatus `json:"services"`
	Ingest    IngestHealth        `json:"ingest"`
}

// ServiceHealthStatus represents the health status of dependent services.
// Optional collaborators that are not configured report "disabled".
type ServiceHealthStatus struct {
	Store    ServiceStatus `json:"store"`
	Redis    ServiceStatus `json:"redis"`
	Postgres ServiceStatus `json:"postgres"`
	NATS     ServiceStatus `json:"nats"`
}

// ServiceStatus represents the status of a single service
type ServiceStatus struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty" example:""`
}

// IngestHealth exposes the batcher backlog.
type IngestHealth struct {
	Buffered     int    `json:"buffered" example:"12"`
	Pending      int    `json:"pending" example:"3"`
	BreakerState string `json:"breakerState" example:"closed"`
}

// Response is the envelope shared by every endpoint.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Activity tracked successfully"`
}

// ErrorResponse carries the offending field for schema violations.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"invalid activityType: unknown activity type"`
	Field   string `json:"field,omitempty" example:"activityType"`
}

// TrackResponse represents the response after tracking an event
type TrackResponse struct {
	Success   bool   `json:"success" example:"true"`
	Message   string `json:"message" example:"Activity tracked successfully"`
	SessionID string `json:"sessionId,omitempty" example:"sess_01JAB3C4D5E6F7G8H9J0KMNPQR"`
}

// BulkFailure describes one rejected item of a bulk request.
type BulkFailure struct {
	Index  int    `json:"index" example:"3"`
	Field  string `json:"field,omitempty" example:"activityType"`
	Reason string `json:"reason" example:"unknown activity type"`
}

// BulkEventResponse represents the response after posting bulk events
type BulkEventResponse struct {
	Success      bool          `json:"success" example:"true"`
	Message      string        `json:"message" example:"Bulk activities processed"`
	TotalCount   int           `json:"total_count" example:"100"`
	SuccessCount int           `json:"success_count" example:"99"`
	FailureCount int           `json:"failure_count" example:"1"`
	Failures     []BulkFailure `json:"failures"`
}

type UserSummary struct {
	ID        string `json:"id" example:"42"`
	FirstName string `json:"firstName" example:"Ada"`
	LastName  string `json:"lastName" example:"Lovelace"`
	Email     string `json:"email" example:"ada@example.com"`
}

type ProductSummary struct {
	ID    string  `json:"id" example:"17"`
	Name  string  `json:"name" example:"Submariner Date"`
	Brand string  `json:"brand" example:"Rolex"`
	Price float64 `json:"price" example:"10250"`
	Image string  `json:"image,omitempty"`
}

type OrderSummary struct {
	ID          string  `json:"id" example:"7"`
	OrderNumber string  `json:"orderNumber" example:"LW-2026-000123"`
	Total       float64 `json:"total" example:"10250"`
	Status      string  `json:"status" example:"paid"`
}

// ActivityView is an event with its referenced entities joined for display.
type ActivityView struct {
	Event
	Product *ProductSummary `json:"product,omitempty"`
	Order   *OrderSummary   `json:"order,omitempty"`
	// DurationMs is set when the client reported startTime and endTime.
	DurationMs *int64 `json:"durationMs,omitempty" example:"3500"`
}

// JourneyStep is one event of a session with the acting user joined.
type JourneyStep struct {
	Event
	User *UserSummary `json:"user,omitempty"`
}

type Pagination struct {
	Current int   `json:"current" example:"1"`
	Pages   int   `json:"pages" example:"3"`
	Total   int64 `json:"total" example:"120"`
}

// NewPagination derives the page count; an empty result has zero pages.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Current: page, Pages: pages, Total: total}
}

type HistoryResponse struct {
	Success    bool           `json:"success" example:"true"`
	Activities []ActivityView `json:"activities"`
	Pagination Pagination     `json:"pagination"`
}

type JourneyResponse struct {
	Success   bool          `json:"success" example:"true"`
	SessionID string        `json:"sessionId"`
	Journey   []JourneyStep `json:"journey"`
}

type OrderTimelineResponse struct {
	Success    bool          `json:"success" example:"true"`
	OrderID    string        `json:"orderId" example:"7"`
	Order      *OrderSummary `json:"order,omitempty"`
	Activities []Event       `json:"activities"`
}

type ActivityStat struct {
	ActivityType   ActivityType `json:"activityType" ch:"activity_type" swaggertype:"string" example:"page_view"`
	Count          uint64       `json:"count" ch:"count" example:"1200"`
	UniqueUsers    uint64       `json:"uniqueUsers" ch:"unique_users" example:"300"`
	UniqueSessions uint64       `json:"uniqueSessions" ch:"unique_sessions" example:"410"`
}

type StatsResponse struct {
	Success bool           `json:"success" example:"true"`
	Start   *time.Time     `json:"start,omitempty"`
	End     *time.Time     `json:"end,omitempty"`
	Stats   []ActivityStat `json:"stats"`
}

type PopularProduct struct {
	ProductID         string          `json:"productId" ch:"product_id" example:"17"`
	ViewCount         uint64          `json:"viewCount" ch:"view_count" example:"2"`
	CartAddCount      uint64          `json:"cartAddCount" ch:"cart_add_count" example:"1"`
	WishlistCount     uint64          `json:"wishlistCount" ch:"wishlist_count" example:"0"`
	TotalInteractions uint64          `json:"totalInteractions" ch:"total_interactions" example:"3"`
	Product           *ProductSummary `json:"product,omitempty" ch:"-"`
}

type PopularProductsResponse struct {
	Success  bool             `json:"success" example:"true"`
	Products []PopularProduct `json:"products"`
}

type ErrorStat struct {
	Message        string    `json:"message" ch:"message" example:"payment gateway timeout"`
	Count          uint64    `json:"count" ch:"count" example:"2"`
	LastSeverity   string    `json:"lastSeverity" ch:"last_severity" example:"high"`
	LastOccurrence time.Time `json:"lastOccurrence" ch:"last_occurrence"`
}

type ErrorStatsResponse struct {
	Success bool        `json:"success" example:"true"`
	Errors  []ErrorStat `json:"errors"`
}

// CleanupResponse reports a retention run or an administrative purge.
type CleanupResponse struct {
	Success      bool   `json:"success" example:"true"`
	Message      string `json:"message" example:"Deleted activities older than 730 days"`
	DeletedCount int64  `json:"deletedCount" example:"1542"`
}
