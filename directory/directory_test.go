package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kucukaslan/activity/domain"
)

func TestLookup(t *testing.T) {
	r, err := Lookup(domain.KindOrder)
	require.NoError(t, err)
	assert.Equal(t, "orders", r.Table)
	assert.Equal(t, "user_id", r.OwnerField)

	_, err = Lookup(domain.KindProduct)
	assert.Error(t, err, "products have no owner")

	_, err = Lookup("invoice")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	users, err := Noop{}.Users(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = Noop{}.OwnerOf(ctx, domain.KindOrder, "7")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	dir := &Static{
		UserSummaries:    map[string]domain.UserSummary{"42": {ID: "42", FirstName: "Ada"}},
		ProductSummaries: map[string]domain.ProductSummary{"17": {ID: "17", Name: "Submariner"}},
		Owners:           map[domain.EntityKind]map[string]string{domain.KindOrder: {"7": "42"}},
	}

	products, err := dir.Products(ctx, []string{"17", "18"})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "Submariner", products["17"].Name)

	owner, err := dir.OwnerOf(ctx, domain.KindOrder, "7")
	require.NoError(t, err)
	assert.Equal(t, "42", owner)

	owner, err = dir.OwnerOf(ctx, domain.KindUser, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", owner)

	_, err = dir.OwnerOf(ctx, domain.KindOrder, "8")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Unique([]string{"b", "", "a", "b"}))
	assert.Empty(t, Unique(nil))
}
