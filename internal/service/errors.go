// server/internal/service/errors.go

// Package service implements the request lifecycle, the admin console and the pharmacy portal
// on top of store.Store.
package service

import (
	"errors"
	"fmt"
	"strings"

	"mediradar-api-server/internal/schedule"
)

var (
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrMissingToken        = errors.New("missing_token")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrOncePerDay          = errors.New("once_per_day")
	ErrPharmacyNotApproved = errors.New("pharmacy_not_approved")
	ErrUnsupportedFile     = errors.New("unsupported_file")
	ErrUploadsDisabled     = errors.New("uploads_disabled")
	ErrPayloadTooLarge     = errors.New("payload_too_large")
)

// HoursError carries the per-day problems of a rejected schedule.
type HoursError struct {
	Days []schedule.DayError
}

func (e *HoursError) Error() string {
	parts := make([]string, len(e.Days))
	for i, d := range e.Days {
		parts[i] = d.Error()
	}
	return fmt.Sprintf("invalid_hours: %s", strings.Join(parts, ", "))
}
