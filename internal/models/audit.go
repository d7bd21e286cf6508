// server/internal/models/audit.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Meta is free-form audit metadata stored as jsonb.
type Meta map[string]any

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Meta) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Meta{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("models: unsupported meta source")
	}
	return json.Unmarshal(raw, m)
}

// AuditEntry is an append-only record of an admin action.
type AuditEntry struct {
	ID         string    `db:"id" bson:"_id" json:"id"`
	Action     string    `db:"action" bson:"action" json:"action"`
	TargetType string    `db:"target_type" bson:"target_type" json:"target_type"`
	TargetID   string    `db:"target_id" bson:"target_id" json:"target_id"`
	Meta       Meta      `db:"meta" bson:"meta" json:"meta,omitempty"`
	ActorID    *string   `db:"actor_id" bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorEmail *string   `db:"actor_email" bson:"actor_email,omitempty" json:"actor_email"`
	CreatedAt  time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}

const (
	AuditPharmacyStatusUpdate = "pharmacy_status_update"
	AuditRequestStatusUpdate  = "request_status_update"
)
