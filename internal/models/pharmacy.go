// server/internal/models/pharmacy.go
package models

import (
	"time"

	"mediradar-api-server/internal/schedule"
)

type PharmacyStatus string

const (
	PharmacyPending   PharmacyStatus = "pending"
	PharmacyApproved  PharmacyStatus = "approved"
	PharmacySuspended PharmacyStatus = "suspended"
)

func (s PharmacyStatus) Valid() bool {
	switch s {
	case PharmacyPending, PharmacyApproved, PharmacySuspended:
		return true
	}
	return false
}

// Pharmacy is owned by one Supabase user and moderated by admins.
type Pharmacy struct {
	ID        string         `db:"id" bson:"_id" json:"id"`
	OwnerID   string         `db:"owner_id" bson:"owner_id" json:"owner_id"`
	Name      string         `db:"name" bson:"name" json:"name"`
	City      string         `db:"city" bson:"city" json:"city"`
	Address   string         `db:"address" bson:"address" json:"address"`
	Phone     string         `db:"phone" bson:"phone" json:"phone"`
	Status    PharmacyStatus `db:"status" bson:"status" json:"status"`
	Hours     schedule.Week  `db:"hours_json" bson:"hours_json" json:"hours"`
	CreatedAt time.Time      `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" bson:"updated_at" json:"updated_at"`
}

type ResponseKind string

const (
	ResponseAvailable   ResponseKind = "available"
	ResponseUnavailable ResponseKind = "unavailable"
	ResponseGeneric     ResponseKind = "generic"
)

func (k ResponseKind) Valid() bool {
	switch k {
	case ResponseAvailable, ResponseUnavailable, ResponseGeneric:
		return true
	}
	return false
}

// Response is a pharmacy's reaction to a request, unique per (request, pharmacy).
type Response struct {
	ID          string       `db:"id" bson:"_id" json:"id"`
	RequestID   string       `db:"request_id" bson:"request_id" json:"request_id"`
	PharmacyID  string       `db:"pharmacy_id" bson:"pharmacy_id" json:"pharmacy_id"`
	Kind        ResponseKind `db:"kind" bson:"kind" json:"kind"`
	GenericOnly bool         `db:"generic_only" bson:"generic_only" json:"generic_only"`
	CreatedAt   time.Time    `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" bson:"updated_at" json:"updated_at"`
}
