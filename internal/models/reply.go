// server/internal/models/reply.go
package models

import "time"

// Reply is a pharmacy's availability answer to a request. Replies are never updated.
type Reply struct {
	ID           string    `db:"id" bson:"_id" json:"id"`
	RequestID    string    `db:"request_id" bson:"request_id" json:"request_id"`
	PharmacyName string    `db:"pharmacy_name" bson:"pharmacy_name" json:"pharmacy_name"`
	Phone        string    `db:"phone" bson:"phone" json:"phone"`
	Address      string    `db:"address" bson:"address" json:"address"`
	Lat          *float64  `db:"lat" bson:"lat,omitempty" json:"lat"`
	Lng          *float64  `db:"lng" bson:"lng,omitempty" json:"lng"`
	Available    bool      `db:"available" bson:"available" json:"available"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}
