package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/uptrace/go-clickhouse/ch"

	"kucukaslan/activity/config"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
)

var _ domain.ActivityStore = &ClickHouseStore{}

// ClickHouseStore is the production activity store.
type ClickHouseStore struct {
	*ch.DB
}

// ConnectClickHouse opens the connection and makes sure the activities table exists.
func ConnectClickHouse(ctx context.Context, cfg *config.ClickHouseConfig) (*ClickHouseStore, error) {
	// Connect without TLS since ClickHouse native protocol doesn't use TLS by default
	db := ch.Connect(
		ch.WithDSN(cfg.GetClickHouseDSN()),
		ch.WithInsecure(true),
	)

	if err := InitActivitiesTable(ctx, db, cfg.TableTTL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize activities table: %w", err)
	}

	logging.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("ClickHouse connection established")
	return &ClickHouseStore{db}, nil
}

// InitActivitiesTable creates the activities table if it doesn't exist. Rows share
// the sorting key only when they carry the same id, so a retried insert collapses
// into one row on merge and reads use FINAL.
func InitActivitiesTable(ctx context.Context, db *ch.DB, ttl bool) error {
	_, err := db.NewCreateTable().
		Model((*Activity)(nil)).
		Engine("ReplacingMergeTree(ingested_at)").
		Order("activity_type, timestamp, id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return err
	}
	if ttl {
		if _, err := db.ExecContext(ctx, "ALTER TABLE activities MODIFY TTL toDateTime(expires_at)"); err != nil {
			return fmt.Errorf("failed to set activities TTL: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return fmt.Errorf("ClickHouse connection is not initialized")
	}
	return c.DB.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	if err := c.DB.Close(); err != nil {
		return fmt.Errorf("failed to close ClickHouse connection: %w", err)
	}
	logging.Info().Msg("ClickHouse connection closed")
	return nil
}

// Activity represents the activities table structure for ClickHouse ORM.
// Nested objects are stored as JSON strings; the columns filtered or grouped on
// are broken out.
type Activity struct {
	ch.CHModel    `ch:"table:activities,partition:toYYYYMM(timestamp)"`
	ID            int64     `ch:"id"`
	UserID        string    `ch:"user_id"`
	SessionID     string    `ch:"session_id"`
	IPAddress     string    `ch:"ip_address"`
	UserAgent     string    `ch:"user_agent"`
	ActivityType  string    `ch:"activity_type,lc"`
	ActivityData  string    `ch:"activity_data,type:String"`
	ProductID     string    `ch:"product_id"`
	OrderID       string    `ch:"order_id"`
	Page          string    `ch:"page,type:String"`
	DeviceType    string    `ch:"device_type,lc"`
	Browser       string    `ch:"browser,lc"`
	OS            string    `ch:"os,lc"`
	Device        string    `ch:"device,type:String"`
	Location      string    `ch:"location,type:String"`
	Performance   string    `ch:"performance,type:String"`
	ErrorMessage  string    `ch:"error_message"`
	ErrorSeverity string    `ch:"error_severity,lc"`
	Error         string    `ch:"error,type:String"`
	Status        string    `ch:"status,lc"`
	Metadata      string    `ch:"metadata,type:String"`
	Timestamp     time.Time `ch:"timestamp,type:DateTime64(3)"`
	ExpiresAt     time.Time `ch:"expires_at,type:DateTime64(3)"`

	IngestedAt time.Time `ch:"ingested_at,default:now()"`
}

// ActivityColumnar: activities in columnar format for batch inserts
type ActivityColumnar struct {
	ch.CHModel    `ch:"table:activities,partition:toYYYYMM(timestamp),columnar"`
	ID            []int64     `ch:"id"`
	UserID        []string    `ch:"user_id"`
	SessionID     []string    `ch:"session_id"`
	IPAddress     []string    `ch:"ip_address"`
	UserAgent     []string    `ch:"user_agent"`
	ActivityType  []string    `ch:"activity_type,lc"`
	ActivityData  []string    `ch:"activity_data,type:String"`
	ProductID     []string    `ch:"product_id"`
	OrderID       []string    `ch:"order_id"`
	Page          []string    `ch:"page,type:String"`
	DeviceType    []string    `ch:"device_type,lc"`
	Browser       []string    `ch:"browser,lc"`
	OS            []string    `ch:"os,lc"`
	Device        []string    `ch:"device,type:String"`
	Location      []string    `ch:"location,type:String"`
	Performance   []string    `ch:"performance,type:String"`
	ErrorMessage  []string    `ch:"error_message"`
	ErrorSeverity []string    `ch:"error_severity,lc"`
	Error         []string    `ch:"error,type:String"`
	Status        []string    `ch:"status,lc"`
	Metadata      []string    `ch:"metadata,type:String"`
	Timestamp     []time.Time `ch:"timestamp,type:DateTime64(3)"`
	ExpiresAt     []time.Time `ch:"expires_at,type:DateTime64(3)"`

	IngestedAt []time.Time `ch:"ingested_at,default:now()"`
}

func (a *ActivityColumnar) append(row *Activity) {
	a.ID = append(a.ID, row.ID)
	a.UserID = append(a.UserID, row.UserID)
	a.SessionID = append(a.SessionID, row.SessionID)
	a.IPAddress = append(a.IPAddress, row.IPAddress)
	a.UserAgent = append(a.UserAgent, row.UserAgent)
	a.ActivityType = append(a.ActivityType, row.ActivityType)
	a.ActivityData = append(a.ActivityData, row.ActivityData)
	a.ProductID = append(a.ProductID, row.ProductID)
	a.OrderID = append(a.OrderID, row.OrderID)
	a.Page = append(a.Page, row.Page)
	a.DeviceType = append(a.DeviceType, row.DeviceType)
	a.Browser = append(a.Browser, row.Browser)
	a.OS = append(a.OS, row.OS)
	a.Device = append(a.Device, row.Device)
	a.Location = append(a.Location, row.Location)
	a.Performance = append(a.Performance, row.Performance)
	a.ErrorMessage = append(a.ErrorMessage, row.ErrorMessage)
	a.ErrorSeverity = append(a.ErrorSeverity, row.ErrorSeverity)
	a.Error = append(a.Error, row.Error)
	a.Status = append(a.Status, row.Status)
	a.Metadata = append(a.Metadata, row.Metadata)
	a.Timestamp = append(a.Timestamp, row.Timestamp)
	a.ExpiresAt = append(a.ExpiresAt, row.ExpiresAt)
	a.IngestedAt = append(a.IngestedAt, row.IngestedAt)
}

// InsertOne saves an event using the connection-level async insert settings.
func (c *ClickHouseStore) InsertOne(ctx context.Context, e domain.Event) error {
	row, err := toRow(&e, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if _, err := c.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: failed to insert activity: %v", domain.ErrPersistence, err)
	}
	return nil
}

// InsertMany saves events using ClickHouse's native columnar insert format.
// Rows that cannot be encoded are reported in a *domain.BatchError while the rest
// are still written. A rejected insert fails every row of the call.
func (c *ClickHouseStore) InsertMany(ctx context.Context, events []domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	now := time.Now()
	failed := map[int]error{}
	columnar := &ActivityColumnar{}
	for i := range events {
		row, err := toRow(&events[i], now)
		if err != nil {
			failed[i] = err
			continue
		}
		columnar.append(row)
	}

	written := len(columnar.ID)
	if written > 0 {
		if _, err := c.NewInsert().Model(columnar).Exec(ctx); err != nil {
			return 0, fmt.Errorf("%w: failed to columnar insert activities: %v", domain.ErrPersistence, err)
		}
	}
	if len(failed) > 0 {
		return written, &domain.BatchError{Failed: failed}
	}
	return written, nil
}

func (c *ClickHouseStore) Find(ctx context.Context, f domain.EventFilter, opts domain.FindOptions) ([]domain.Event, error) {
	var rows []Activity

	q := c.NewSelect().
		// FINAL collapses rows written twice by a retried flush
		TableExpr("activities FINAL").
		ColumnExpr("*")
	for _, cond := range filterConds(f) {
		q = q.Where(cond.expr, cond.arg)
	}
	if opts.Sort == domain.OldestFirst {
		q = q.OrderExpr("timestamp ASC, id ASC")
	} else {
		q = q.OrderExpr("timestamp DESC, id DESC")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(rows))
	for i := range rows {
		e, err := fromRow(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode activity %d: %w", rows[i].ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

type countResult struct {
	Count uint64 `ch:"count"`
}

func (c *ClickHouseStore) Count(ctx context.Context, f domain.EventFilter) (int64, error) {
	var results []countResult
	q := c.NewSelect().
		TableExpr("activities FINAL").
		ColumnExpr("count() AS count")
	for _, cond := range filterConds(f) {
		q = q.Where(cond.expr, cond.arg)
	}
	if err := q.Scan(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return int64(results[0].Count), nil
}

// Delete counts the matching rows, then issues a lightweight DELETE.
func (c *ClickHouseStore) Delete(ctx context.Context, f domain.EventFilter) (int64, error) {
	conds := filterConds(f)
	if len(conds) == 0 {
		return 0, domain.ErrEmptyFilter
	}

	n, err := c.Count(ctx, f)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	exprs := make([]string, len(conds))
	args := make([]any, len(conds))
	for i, cond := range conds {
		exprs[i] = cond.expr
		args[i] = cond.arg
	}
	query := "DELETE FROM activities WHERE " + strings.Join(exprs, " AND ")
	if _, err := c.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to delete activities: %w", err)
	}
	return n, nil
}

type activityStatRow struct {
	ActivityType   string `ch:"activity_type"`
	Count          uint64 `ch:"count"`
	UniqueUsers    uint64 `ch:"unique_users"`
	UniqueSessions uint64 `ch:"unique_sessions"`
}

// ActivityStats groups the window by activity type.
func (c *ClickHouseStore) ActivityStats(ctx context.Context, w domain.Window) ([]domain.ActivityStat, error) {
	var rows []activityStatRow

	q := c.NewSelect().
		TableExpr("activities FINAL").
		ColumnExpr("activity_type").
		ColumnExpr("count() AS count").
		// anonymous visitors are not users
		ColumnExpr("uniqExactIf(user_id, user_id != '') AS unique_users").
		ColumnExpr("uniqExact(session_id) AS unique_sessions")
	for _, cond := range filterConds(w.Filter()) {
		q = q.Where(cond.expr, cond.arg)
	}
	q = q.GroupExpr("activity_type").OrderExpr("count DESC, activity_type ASC")

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	stats := make([]domain.ActivityStat, len(rows))
	for i, r := range rows {
		stats[i] = domain.ActivityStat{
			ActivityType:   domain.ActivityType(r.ActivityType),
			Count:          r.Count,
			UniqueUsers:    r.UniqueUsers,
			UniqueSessions: r.UniqueSessions,
		}
	}
	return stats, nil
}

type popularProductRow struct {
	ProductID         string `ch:"product_id"`
	ViewCount         uint64 `ch:"view_count"`
	CartAddCount      uint64 `ch:"cart_add_count"`
	WishlistCount     uint64 `ch:"wishlist_count"`
	TotalInteractions uint64 `ch:"total_interactions"`
}

// PopularProducts ranks products by every event referencing them.
func (c *ClickHouseStore) PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	var rows []popularProductRow

	err := c.NewSelect().
		TableExpr("activities FINAL").
		ColumnExpr("product_id").
		ColumnExpr("countIf(activity_type = ?) AS view_count", string(domain.ProductView)).
		ColumnExpr("countIf(activity_type = ?) AS cart_add_count", string(domain.ProductAddToCart)).
		ColumnExpr("countIf(activity_type = ?) AS wishlist_count", string(domain.ProductAddToWishlist)).
		ColumnExpr("count() AS total_interactions").
		Where("product_id != ''").
		GroupExpr("product_id").
		OrderExpr("total_interactions DESC, product_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	products := make([]domain.PopularProduct, len(rows))
	for i, r := range rows {
		products[i] = domain.PopularProduct{
			ProductID:         r.ProductID,
			ViewCount:         r.ViewCount,
			CartAddCount:      r.CartAddCount,
			WishlistCount:     r.WishlistCount,
			TotalInteractions: r.TotalInteractions,
		}
	}
	return products, nil
}

type errorStatRow struct {
	Message        string    `ch:"message"`
	Count          uint64    `ch:"count"`
	LastSeverity   string    `ch:"last_severity"`
	LastOccurrence time.Time `ch:"last_occurrence"`
}

// ErrorStats groups error_occurred events of the window by message.
func (c *ClickHouseStore) ErrorStats(ctx context.Context, w domain.Window) ([]domain.ErrorStat, error) {
	var rows []errorStatRow

	f := w.Filter()
	f.ActivityType = domain.ErrorOccurred
	q := c.NewSelect().
		TableExpr("activities FINAL").
		ColumnExpr("error_message AS message").
		ColumnExpr("count() AS count").
		ColumnExpr("argMax(error_severity, (timestamp, id)) AS last_severity").
		ColumnExpr("max(timestamp) AS last_occurrence")
	for _, cond := range filterConds(f) {
		q = q.Where(cond.expr, cond.arg)
	}
	q = q.GroupExpr("error_message").OrderExpr("count DESC, message ASC")

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	stats := make([]domain.ErrorStat, len(rows))
	for i, r := range rows {
		stats[i] = domain.ErrorStat{
			Message:        r.Message,
			Count:          r.Count,
			LastSeverity:   r.LastSeverity,
			LastOccurrence: r.LastOccurrence.UTC(),
		}
	}
	return stats, nil
}

type cond struct {
	expr string
	arg  any
}

// filterConds translates f into placeholders. Column names are fixed here, never
// taken from input.
func filterConds(f domain.EventFilter) []cond {
	var conds []cond
	if f.UserID != "" {
		conds = append(conds, cond{"user_id = ?", f.UserID})
	}
	if f.SessionID != "" {
		conds = append(conds, cond{"session_id = ?", f.SessionID})
	}
	if f.ProductID != "" {
		conds = append(conds, cond{"product_id = ?", f.ProductID})
	}
	if f.OrderID != "" {
		conds = append(conds, cond{"order_id = ?", f.OrderID})
	}
	if f.ActivityType != "" {
		conds = append(conds, cond{"activity_type = ?", string(f.ActivityType)})
	}
	if !f.Since.IsZero() {
		conds = append(conds, cond{"timestamp >= ?", f.Since.UTC()})
	}
	if !f.Before.IsZero() {
		conds = append(conds, cond{"timestamp < ?", f.Before.UTC()})
	}
	return conds
}

// toRow stores both times at millisecond precision so expires_at - timestamp
// stays exactly the retention horizon.
func toRow(e *domain.Event, ingestedAt time.Time) (*Activity, error) {
	row := &Activity{
		ID:           e.ID,
		UserID:       e.UserID,
		SessionID:    e.SessionID,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		ActivityType: string(e.ActivityType),
		ProductID:    e.ProductID,
		OrderID:      e.OrderID,
		DeviceType:   e.Device.Type,
		Browser:      e.Device.Browser,
		OS:           e.Device.OS,
		Status:       string(e.Status),
		Timestamp:    e.Timestamp.UTC().Truncate(time.Millisecond),
		ExpiresAt:    e.ExpiresAt.UTC().Truncate(time.Millisecond),
		IngestedAt:   ingestedAt,
	}
	if e.Error != nil {
		row.ErrorMessage = e.Error.Message
		row.ErrorSeverity = e.Error.Severity
	}

	var err error
	for _, col := range []struct {
		dst *string
		v   any
	}{
		{&row.ActivityData, e.ActivityData},
		{&row.Page, e.Page},
		{&row.Device, e.Device},
		{&row.Location, e.Location},
		{&row.Performance, e.Performance},
		{&row.Metadata, e.Metadata},
	} {
		if *col.dst, err = encodeJSON(col.v); err != nil {
			return nil, err
		}
	}
	if e.Error != nil {
		if row.Error, err = encodeJSON(e.Error); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func fromRow(row *Activity) (domain.Event, error) {
	e := domain.Event{
		ID:           row.ID,
		UserID:       row.UserID,
		SessionID:    row.SessionID,
		IPAddress:    row.IPAddress,
		UserAgent:    row.UserAgent,
		ActivityType: domain.ActivityType(row.ActivityType),
		ProductID:    row.ProductID,
		OrderID:      row.OrderID,
		Status:       domain.Status(row.Status),
		Timestamp:    row.Timestamp.UTC(),
		ExpiresAt:    row.ExpiresAt.UTC(),
		ActivityData: map[string]any{},
		Location:     map[string]any{},
		Metadata:     map[string]any{},
	}

	for _, col := range []struct {
		src string
		dst any
	}{
		{row.ActivityData, &e.ActivityData},
		{row.Page, &e.Page},
		{row.Device, &e.Device},
		{row.Location, &e.Location},
		{row.Performance, &e.Performance},
		{row.Metadata, &e.Metadata},
	} {
		if col.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.src), col.dst); err != nil {
			return domain.Event{}, err
		}
	}
	if row.Error != "" {
		e.Error = &domain.ErrorDetail{}
		if err := json.Unmarshal([]byte(row.Error), e.Error); err != nil {
			return domain.Event{}, err
		}
	}
	return e, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize column: %w", err)
	}
	return string(b), nil
}
