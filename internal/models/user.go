package models

import (
	"slices"
	"strings"
	"time"
)

// Roles a user can hold.
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Address is a shipping address embedded in users and orders.
type Address struct {
	Address    string `json:"address" bson:"address" gorm:"type:varchar(255)"`
	City       string `json:"city" bson:"city" gorm:"type:varchar(100)"`
	PostalCode string `json:"postalCode" bson:"postalCode" gorm:"type:varchar(20)"`
	Country    string `json:"country" bson:"country" gorm:"type:varchar(100)"`
}

// User represents a customer or staff account of the store.
type User struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" bson:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" bson:"email" gorm:"index;type:varchar(255)"`
	Password  string    `json:"-" bson:"password" gorm:"type:varchar(255)"` // bcrypt hash, never serialized
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty" gorm:"type:varchar(32)"`
	Shipping  Address   `json:"shipping" bson:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	Roles     []string  `json:"roles" bson:"roles" gorm:"serializer:json;type:text"`
	IsActive  bool      `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// IsStaff reports whether the user may work in the back office.
func (u *User) IsStaff() bool { return u.HasRole(RoleAdmin) || u.HasRole(RoleManager) }
