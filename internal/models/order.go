package models

import "time"

// OrderItem is a line item copied from the product at order time.
type OrderItem struct {
	Product       string  `json:"product" bson:"product"`
	Name          string  `json:"name" bson:"name"`
	Image         string  `json:"image,omitempty" bson:"image,omitempty"`
	Quantity      int     `json:"quantity" bson:"quantity"`
	Price         float64 `json:"price" bson:"price"` // price at the time of order
	StripePriceID string  `json:"stripePriceId,omitempty" bson:"stripePriceId,omitempty"`
}

// Customer is the contact snapshot of whoever placed the order. Guest orders
// carry only this and no user reference.
type Customer struct {
	Name  string `json:"name" bson:"name" gorm:"type:varchar(100)"`
	Email string `json:"email" bson:"email" gorm:"type:varchar(255)"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty" gorm:"type:varchar(32)"`
}

// Order represents a customer order.
type Order struct {
	ID              string      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	User            string      `json:"user,omitempty" bson:"user,omitempty" gorm:"column:user_id;index;type:varchar(36)"`
	Customer        Customer    `json:"customer" bson:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	OrderItems      []OrderItem `json:"orderItems" bson:"orderItems" gorm:"serializer:json;type:text"`
	ShippingAddress Address     `json:"shippingAddress" bson:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentMethod   string      `json:"paymentMethod" bson:"paymentMethod" gorm:"type:varchar(50)"`
	Subtotal        float64     `json:"subtotal" bson:"subtotal"`
	ShippingCost    float64     `json:"shippingCost" bson:"shippingCost"`
	Tax             float64     `json:"tax" bson:"tax"`
	Total           float64     `json:"total" bson:"total"`
	IsPaid          bool        `json:"isPaid" bson:"isPaid" gorm:"index"`
	PaidAt          *time.Time  `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	StripeSessionID string      `json:"-" bson:"stripeSessionId,omitempty" gorm:"type:varchar(255)"`
	IsDelivered     bool        `json:"isDelivered" bson:"isDelivered"`
	DeliveredAt     *time.Time  `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// IsOwnedBy reports whether the order belongs to the given user.
func (o *Order) IsOwnedBy(userID string) bool {
	return o.User != "" && o.User == userID
}
