package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a new opaque document identifier. The same format is used for
// every store so ids survive a move between MongoDB and the SQL drivers.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
