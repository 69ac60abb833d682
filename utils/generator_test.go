package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBookingOrderID(t *testing.T) {
	id := uuid.New()
	now := time.UnixMilli(1_900_000_000_123)

	orderID := BookingOrderID(id, now)
	assert.Equal(t, "booking-"+id.String()+"-1900000000123", orderID)

	parsed, ok := ParseBookingOrderID(orderID)
	assert.True(t, ok)
	assert.Equal(t, id, parsed)

	for _, bad := range []string{"", "order-123", "booking-", "booking-not-a-uuid-1", strings.Repeat("x", 10)} {
		_, ok := ParseBookingOrderID(bad)
		assert.False(t, ok, bad)
	}
}

func TestPagination(t *testing.T) {
	req := NewPageRequest(0, 0)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, DefaultPageLimit, req.Limit)
	assert.Equal(t, 0, req.Offset())

	req = NewPageRequest(3, 500)
	assert.Equal(t, MaxPageLimit, req.Limit)
	assert.Equal(t, 200, req.Offset())

	meta := NewPageRequest(2, 10).Meta(21)
	assert.Equal(t, PageMeta{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, meta)

	page := NewPage[int](nil, NewPageRequest(1, 10), 0)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 0, page.Pagination.TotalPages)
}
