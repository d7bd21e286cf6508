// server/internal/models/request.go
package models

import "time"

// RequestStatus is the lifecycle state of a medicine request.
type RequestStatus string

const (
	StatusPending     RequestStatus = "pending"
	StatusReserved    RequestStatus = "reserved"
	StatusAvailable   RequestStatus = "available"
	StatusUnavailable RequestStatus = "unavailable"
)

// RequestStatuses lists every known request status.
var RequestStatuses = []RequestStatus{StatusPending, StatusReserved, StatusAvailable, StatusUnavailable}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Request is a medicine request submitted by an end user.
type Request struct {
	ID           string        `db:"id" bson:"_id" json:"id"`
	StatusToken  string        `db:"status_token" bson:"status_token" json:"-"`
	Status       RequestStatus `db:"status" bson:"status" json:"status"`
	Lang         string        `db:"lang" bson:"lang" json:"lang"`
	City         string        `db:"city" bson:"city" json:"city"`
	MedicineName string        `db:"medicine_name" bson:"medicine_name" json:"medicine_name"`
	Substance    string        `db:"substance" bson:"substance" json:"substance"`
	Type         string        `db:"type" bson:"type" json:"type"`
	Quantity     int           `db:"quantity" bson:"quantity" json:"quantity"`
	AllowGeneric bool          `db:"allow_generic" bson:"allow_generic" json:"allow_generic"`
	RxNumber     string        `db:"rx_number" bson:"rx_number" json:"rx_number"`
	RxImageURL   *string       `db:"rx_image_url" bson:"rx_image_url,omitempty" json:"rx_image_url,omitempty"`
	HoldUntil    *time.Time    `db:"hold_until" bson:"hold_until,omitempty" json:"hold_until,omitempty"`
	// ExtendUsedAt is a civil date stored as midnight UTC.
	ExtendUsedAt *time.Time `db:"extend_used_at" bson:"extend_used_at,omitempty" json:"extend_used_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" bson:"updated_at" json:"updated_at"`
}

// StatusView is the unauthenticated projection returned by request-status.
type StatusView struct {
	Status       RequestStatus `json:"status"`
	HoldUntil    *time.Time    `json:"hold_until"`
	ExtendUsedAt *string       `json:"extend_used_at"`
	City         string        `json:"city"`
	MedicineName string        `json:"medicine_name"`
	Replies      []Reply       `json:"replies"`
}

// DateLayout formats civil dates such as extend_used_at.
const DateLayout = "2006-01-02"
