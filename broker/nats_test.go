package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kucukaslan/activity/domain"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "activity.product_view", Subject("activity", domain.ProductView))
	assert.Equal(t, "shop.events.error_occurred", Subject("shop.events", domain.ErrorOccurred))
}
