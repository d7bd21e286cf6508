// server/internal/lifecycle/lifecycle.go

// Package lifecycle holds the request state machine and the hold timing rules.
package lifecycle

import (
	"crypto/rand"
	"math/big"
	"time"

	"mediradar-api-server/internal/models"
)

var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending:  {models.StatusReserved, models.StatusAvailable},
	models.StatusReserved: {models.StatusAvailable, models.StatusUnavailable},
}

// CanTransition reports whether from → to is a legal lifecycle step.
// available and unavailable are terminal.
func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Policy carries the hold durations and the zone that defines a calendar day.
type Policy struct {
	Reserve  time.Duration
	Extend   time.Duration
	Location *time.Location
}

func DefaultPolicy() Policy {
	return Policy{Reserve: 60 * time.Minute, Extend: 15 * time.Minute, Location: time.Local}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// ReserveUntil is the hold deadline set by a reservation made at now.
func (p Policy) ReserveUntil(now time.Time) time.Time {
	return now.Add(p.Reserve).UTC()
}

// ExtendedHold returns max(current, now) + Extend, so a hold never moves backwards.
func (p Policy) ExtendedHold(current *time.Time, now time.Time) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(p.Extend).UTC()
}

// Today is the civil date of now in the policy zone, as midnight UTC.
func (p Policy) Today(now time.Time) time.Time {
	y, m, d := now.In(p.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UsedToday reports whether an extension stamp falls on the same civil day as now.
// Stamps are civil dates, so their own Y-M-D is compared without zone conversion.
func (p Policy) UsedToday(extendUsedAt *time.Time, now time.Time) bool {
	if extendUsedAt == nil {
		return false
	}
	y1, m1, d1 := extendUsedAt.Date()
	y2, m2, d2 := p.Today(now).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	TokenLength   = 8
)

// NewStatusToken returns an 8-character lowercase alphanumeric lookup token.
func NewStatusToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, TokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
