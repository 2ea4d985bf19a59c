package services

import (
	"context"
	"errors"
	"fmt"

	"kucukaslan/activity/analytics"
	"kucukaslan/activity/directory"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
)

var _ domain.AnalyticsService = &analyticsService{}

type analyticsService struct {
	store domain.ActivityStore
	dir   domain.Directory
}

// NewAnalyticsService returns the read side. A nil directory disables summary joins.
func NewAnalyticsService(store domain.ActivityStore, dir domain.Directory) (domain.AnalyticsService, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store cannot be nil")
	}
	if dir == nil {
		dir = directory.Noop{}
	}
	return &analyticsService{store: store, dir: dir}, nil
}

func queryError(op string, err error) error {
	var violation *domain.SchemaViolation
	if errors.As(err, &violation) || errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return &domain.QueryError{Op: op, Err: err}
}

func (s *analyticsService) UserHistory(ctx context.Context, q domain.HistoryQuery) (*domain.HistoryResponse, error) {
	if q.UserID == "" {
		return nil, &domain.SchemaViolation{Field: "userId", Reason: "is required"}
	}
	if q.ActivityType != "" && !q.ActivityType.Valid() {
		return nil, &domain.SchemaViolation{Field: "activityType", Reason: fmt.Sprintf("unknown activity type %q", q.ActivityType)}
	}
	limit := analytics.ClampLimit(q.Limit, domain.DefaultHistoryLimit, domain.MaxHistoryLimit)
	page := max(q.Page, 1)
	filter := domain.EventFilter{UserID: q.UserID, ActivityType: q.ActivityType}

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, queryError("user_history", err)
	}
	events, err := s.store.Find(ctx, filter, domain.FindOptions{
		Sort:   domain.NewestFirst,
		Limit:  limit,
		Offset: analytics.Offset(page, limit),
	})
	if err != nil {
		return nil, queryError("user_history", err)
	}

	productIDs := make([]string, 0, len(events))
	orderIDs := make([]string, 0, len(events))
	for i := range events {
		productIDs = append(productIDs, events[i].ProductID)
		orderIDs = append(orderIDs, events[i].OrderID)
	}
	products := s.products(ctx, productIDs)
	orders := s.orders(ctx, orderIDs)

	views := make([]domain.ActivityView, len(events))
	for i := range events {
		v := domain.ActivityView{Event: events[i]}
		if p, ok := products[events[i].ProductID]; ok {
			v.Product = &p
		}
		if o, ok := orders[events[i].OrderID]; ok {
			v.Order = &o
		}
		if d, ok := analytics.Duration(&events[i]); ok {
			ms := d.Milliseconds()
			v.DurationMs = &ms
		}
		views[i] = v
	}

	return &domain.HistoryResponse{
		Success:    true,
		Activities: views,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

func (s *analyticsService) Journey(ctx context.Context, sessionID string) (*domain.JourneyResponse, error) {
	if sessionID == "" {
		return nil, &domain.SchemaViolation{Field: "sessionId", Reason: "is required"}
	}
	events, err := s.store.Find(ctx, domain.EventFilter{SessionID: sessionID}, domain.FindOptions{Sort: domain.OldestFirst})
	if err != nil {
		return nil, queryError("journey", err)
	}

	userIDs := make([]string, 0, len(events))
	for i := range events {
		userIDs = append(userIDs, events[i].UserID)
	}
	users := s.users(ctx, userIDs)

	steps := make([]domain.JourneyStep, len(events))
	for i := range events {
		steps[i] = domain.JourneyStep{Event: events[i]}
		if u, ok := users[events[i].UserID]; ok {
			steps[i].User = &u
		}
	}
	return &domain.JourneyResponse{Success: true, SessionID: sessionID, Journey: steps}, nil
}

func (s *analyticsService) ActivityStats(ctx context.Context, w domain.Window) (*domain.StatsResponse, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	stats, err := s.store.ActivityStats(ctx, w)
	if err != nil {
		return nil, queryError("activity_stats", err)
	}
	if stats == nil {
		stats = []domain.ActivityStat{}
	}
	resp := &domain.StatsResponse{Success: true, Stats: stats}
	if !w.Start.IsZero() {
		resp.Start = &w.Start
	}
	if !w.End.IsZero() {
		resp.End = &w.End
	}
	return resp, nil
}

func (s *analyticsService) PopularProducts(ctx context.Context, limit int) (*domain.PopularProductsResponse, error) {
	limit = analytics.ClampLimit(limit, domain.DefaultPopularLimit, domain.MaxPopularLimit)
	ranked, err := s.store.PopularProducts(ctx, limit)
	if err != nil {
		return nil, queryError("popular_products", err)
	}
	if ranked == nil {
		ranked = []domain.PopularProduct{}
	}

	ids := make([]string, len(ranked))
	for i := range ranked {
		ids[i] = ranked[i].ProductID
	}
	products := s.products(ctx, ids)
	for i := range ranked {
		if p, ok := products[ranked[i].ProductID]; ok {
			ranked[i].Product = &p
		}
	}
	return &domain.PopularProductsResponse{Success: true, Products: ranked}, nil
}

func (s *analyticsService) ErrorStats(ctx context.Context, w domain.Window) (*domain.ErrorStatsResponse, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	stats, err := s.store.ErrorStats(ctx, w)
	if err != nil {
		return nil, queryError("error_stats", err)
	}
	if stats == nil {
		stats = []domain.ErrorStat{}
	}
	return &domain.ErrorStatsResponse{Success: true, Errors: stats}, nil
}

func (s *analyticsService) OrderTimeline(ctx context.Context, orderID, actor string, isAdmin bool) (*domain.OrderTimelineResponse, error) {
	if orderID == "" {
		return nil, &domain.SchemaViolation{Field: "orderId", Reason: "is required"}
	}
	if !isAdmin {
		owner, err := s.dir.OwnerOf(ctx, domain.KindOrder, orderID)
		if err != nil {
			return nil, queryError("order_timeline", err)
		}
		if actor == "" || owner != actor {
			return nil, domain.ErrForbidden
		}
	}

	events, err := s.store.Find(ctx, domain.EventFilter{OrderID: orderID}, domain.FindOptions{Sort: domain.OldestFirst})
	if err != nil {
		return nil, queryError("order_timeline", err)
	}
	resp := &domain.OrderTimelineResponse{Success: true, OrderID: orderID, Activities: events}
	if o, ok := s.orders(ctx, []string{orderID})[orderID]; ok {
		resp.Order = &o
	}
	return resp, nil
}

func checkWindow(w domain.Window) error {
	if !w.Start.IsZero() && !w.End.IsZero() && !w.End.After(w.Start) {
		return &domain.SchemaViolation{Field: "end", Reason: "must be after start"}
	}
	return nil
}

// Summary joins are decoration. A directory failure is logged and the
// events are returned without them.

func (s *analyticsService) users(ctx context.Context, ids []string) map[string]domain.UserSummary {
	ids = directory.Unique(ids)
	if len(ids) == 0 {
		return nil
	}
	out, err := s.dir.Users(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("User summaries unavailable")
		return nil
	}
	return out
}

func (s *analyticsService) products(ctx context.Context, ids []string) map[string]domain.ProductSummary {
	ids = directory.Unique(ids)
	if len(ids) == 0 {
		return nil
	}
	out, err := s.dir.Products(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Product summaries unavailable")
		return nil
	}
	return out
}

func (s *analyticsService) orders(ctx context.Context, ids []string) map[string]domain.OrderSummary {
	ids = directory.Unique(ids)
	if len(ids) == 0 {
		return nil
	}
	out, err := s.dir.Orders(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Order summaries unavailable")
		return nil
	}
	return out
}
