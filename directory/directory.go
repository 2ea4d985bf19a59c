// Package directory reads summaries of users, products and orders. Those entities
// belong to the storefront database; events only hold their ids.
package directory

import (
	"context"
	"fmt"

	"kucukaslan/activity/domain"
)

// Resolver describes where an entity kind lives and which column names its owner.
type Resolver struct {
	Table string
	// OwnerField is empty for kinds nobody owns.
	OwnerField string
}

// Registry is the static map of entity kinds to their tables.
var Registry = map[domain.EntityKind]Resolver{
	domain.KindUser:    {Table: "users", OwnerField: "id"},
	domain.KindProduct: {Table: "products"},
	domain.KindOrder:   {Table: "orders", OwnerField: "user_id"},
}

// Lookup returns the resolver of kind, failing for kinds without an owner.
func Lookup(kind domain.EntityKind) (Resolver, error) {
	r, ok := Registry[kind]
	if !ok {
		return Resolver{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	if r.OwnerField == "" {
		return Resolver{}, fmt.Errorf("%s has no owner", kind)
	}
	return r, nil
}

var _ domain.Directory = Noop{}

// Noop is used when no storefront database is configured: nothing is joined and
// nothing has a known owner.
type Noop struct{}

func (Noop) Users(context.Context, []string) (map[string]domain.UserSummary, error) {
	return map[string]domain.UserSummary{}, nil
}

func (Noop) Products(context.Context, []string) (map[string]domain.ProductSummary, error) {
	return map[string]domain.ProductSummary{}, nil
}

func (Noop) Orders(context.Context, []string) (map[string]domain.OrderSummary, error) {
	return map[string]domain.OrderSummary{}, nil
}

func (Noop) OwnerOf(_ context.Context, kind domain.EntityKind, _ string) (string, error) {
	if _, err := Lookup(kind); err != nil {
		return "", err
	}
	return "", domain.ErrNotFound
}

// Static is an in-process directory, handy for demos and tests.
type Static struct {
	UserSummaries    map[string]domain.UserSummary
	ProductSummaries map[string]domain.ProductSummary
	OrderSummaries   map[string]domain.OrderSummary
	// Owners maps kind and id to the owning user id.
	Owners map[domain.EntityKind]map[string]string
}

var _ domain.Directory = &Static{}

func (s *Static) Users(_ context.Context, ids []string) (map[string]domain.UserSummary, error) {
	return pick(s.UserSummaries, ids), nil
}

func (s *Static) Products(_ context.Context, ids []string) (map[string]domain.ProductSummary, error) {
	return pick(s.ProductSummaries, ids), nil
}

func (s *Static) Orders(_ context.Context, ids []string) (map[string]domain.OrderSummary, error) {
	return pick(s.OrderSummaries, ids), nil
}

func (s *Static) OwnerOf(_ context.Context, kind domain.EntityKind, id string) (string, error) {
	if _, err := Lookup(kind); err != nil {
		return "", err
	}
	if kind == domain.KindUser {
		if _, ok := s.UserSummaries[id]; ok {
			return id, nil
		}
		return "", domain.ErrNotFound
	}
	owner, ok := s.Owners[kind][id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func pick[T any](from map[string]T, ids []string) map[string]T {
	out := make(map[string]T, len(ids))
	for _, id := range ids {
		if v, ok := from[id]; ok {
			out[id] = v
		}
	}
	return out
}

// Unique drops empty and repeated ids, keeping first-seen order.
func Unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
