package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
)

var _ domain.Directory = &Postgres{}

// Postgres reads the storefront tables. Ids are compared as text so numeric and
// uuid keys both work.
type Postgres struct {
	Pool *pgxpool.Pool
}

func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	logging.Info().Str("host", cfg.ConnConfig.Host).Msg("Storefront directory connected")
	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	return p.Pool.QueryRow(ctx, "select 1").Scan(&one)
}

func (p *Postgres) Users(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	out := map[string]domain.UserSummary{}
	ids = Unique(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := p.Pool.Query(ctx, `
SELECT id::text, coalesce(first_name, ''), coalesce(last_name, ''), coalesce(email, '')
FROM users
WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (p *Postgres) Products(ctx context.Context, ids []string) (map[string]domain.ProductSummary, error) {
	out := map[string]domain.ProductSummary{}
	ids = Unique(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := p.Pool.Query(ctx, `
SELECT id::text, name, coalesce(brand, ''), coalesce(price, 0)::float8, coalesce(image, '')
FROM products
WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pr domain.ProductSummary
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Brand, &pr.Price, &pr.Image); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[pr.ID] = pr
	}
	return out, rows.Err()
}

func (p *Postgres) Orders(ctx context.Context, ids []string) (map[string]domain.OrderSummary, error) {
	out := map[string]domain.OrderSummary{}
	ids = Unique(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := p.Pool.Query(ctx, `
SELECT id::text, coalesce(order_number, ''), coalesce(total, 0)::float8, coalesce(status, '')
FROM orders
WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o domain.OrderSummary
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Total, &o.Status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out[o.ID] = o
	}
	return out, rows.Err()
}

// OwnerOf reads the owner column named by the Registry.
func (p *Postgres) OwnerOf(ctx context.Context, kind domain.EntityKind, id string) (string, error) {
	r, err := Lookup(kind)
	if err != nil {
		return "", err
	}
	// table and column come from the static Registry
	sql := fmt.Sprintf("SELECT %s::text FROM %s WHERE id::text = $1", r.OwnerField, r.Table)

	var owner *string
	if err := p.Pool.QueryRow(ctx, sql, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("lookup %s owner: %w", kind, err)
	}
	if owner == nil {
		return "", domain.ErrNotFound
	}
	return *owner, nil
}
