package models_test

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPricing_Compute(t *testing.T) {
	pricing := models.Pricing{TaxRate: 0.15, ShippingFlat: 10, FreeShippingThreshold: 100}

	tests := []struct {
		name  string
		items []models.OrderItem
		want  models.Totals
	}{
		{
			name:  "below free shipping threshold",
			items: []models.OrderItem{{Quantity: 2, Price: 10}},
			want:  models.Totals{Subtotal: 20, ShippingCost: 10, Tax: 3, Total: 33},
		},
		{
			name:  "free shipping",
			items: []models.OrderItem{{Quantity: 1, Price: 99.99}, {Quantity: 3, Price: 0.01}},
			want:  models.Totals{Subtotal: 100.02, ShippingCost: 0, Tax: 15, Total: 115.02},
		},
		{
			name:  "cents do not drift",
			items: []models.OrderItem{{Quantity: 3, Price: 0.1}},
			want:  models.Totals{Subtotal: 0.3, ShippingCost: 10, Tax: 0.05, Total: 10.35},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pricing.Compute(tt.items))
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(500), models.ToMinorUnits(5))
	assert.Equal(t, int64(100), models.ToMinorUnits(1))
	assert.Equal(t, int64(1999), models.ToMinorUnits(19.99))
	assert.Equal(t, int64(29), models.ToMinorUnits(0.285))
}

func TestOrder_IsOwnedBy(t *testing.T) {
	assert.True(t, (&models.Order{User: "u1"}).IsOwnedBy("u1"))
	assert.False(t, (&models.Order{User: "u1"}).IsOwnedBy("u2"))
	assert.False(t, (&models.Order{}).IsOwnedBy(""))
}

func TestUser_Roles(t *testing.T) {
	manager := &models.User{Roles: []string{models.RoleUser, models.RoleManager}}
	assert.True(t, manager.IsStaff())
	assert.False(t, manager.IsAdmin())

	var anonymous *models.User
	assert.False(t, anonymous.IsStaff())
	assert.Equal(t, "jane@example.com", models.NormalizeEmail("  Jane@Example.COM "))
}
