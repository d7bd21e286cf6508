// server/internal/store/store.go

// Package store defines persistence for requests, pharmacies and the admin audit log.
// Implementations live in the postgres, mongo and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/schedule"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports a conditional write whose precondition no longer held.
	ErrConflict = errors.New("store: conflict")
	// ErrDuplicateToken reports a status_token collision on insert.
	ErrDuplicateToken = errors.New("store: duplicate status token")
)

type RequestFilter struct {
	Status string
	City   string
	Query  string
	Limit  int
}

type PharmacyFilter struct {
	Status string
	Limit  int
}

// Counts feeds the admin summary metrics.
type Counts struct {
	TotalRequests       int
	PendingRequests     int
	ActiveRequests      int
	Pharmacies          int
	PharmaciesApproved  int
	PharmaciesSuspended int
}

// ActiveStatuses are the request statuses counted as resolved or in progress.
var ActiveStatuses = []models.RequestStatus{models.StatusAvailable, models.StatusReserved}

type RequestStore interface {
	// CreateRequest assigns ID and timestamps. It returns ErrDuplicateToken when the token is taken.
	CreateRequest(ctx context.Context, r *models.Request) error
	GetRequestByToken(ctx context.Context, token string) (*models.Request, error)
	GetRequestByID(ctx context.Context, id string) (*models.Request, error)
	// TransitionRequest moves the request to `to` only while its status is still `from`.
	// A non-nil holdUntil only ever moves hold_until later. ErrConflict when the status changed underneath.
	TransitionRequest(ctx context.Context, id string, from, to models.RequestStatus, holdUntil *time.Time) (*models.Request, error)
	// ExtendHold raises hold_until to at least holdUntil and stamps today, unless extend_used_at
	// already equals today (ErrConflict). It returns the stored hold_until.
	ExtendHold(ctx context.Context, id string, holdUntil, today time.Time) (time.Time, error)
	SetPrescriptionImage(ctx context.Context, id, url string) error
	InsertReply(ctx context.Context, reply *models.Reply) error
	// RequestStatus returns the public projection of a request and its replies.
	RequestStatus(ctx context.Context, token string) (*models.StatusView, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]models.Request, error)
}

type PharmacyStore interface {
	ListPharmacies(ctx context.Context, f PharmacyFilter) ([]models.Pharmacy, error)
	GetPharmacy(ctx context.Context, id string) (*models.Pharmacy, error)
	GetPharmacyByOwner(ctx context.Context, ownerID string) (*models.Pharmacy, error)
	// EnsurePharmacy inserts p unless the owner already has a pharmacy, and returns the stored row.
	EnsurePharmacy(ctx context.Context, p *models.Pharmacy) (*models.Pharmacy, error)
	SetPharmacyStatus(ctx context.Context, id string, from, to models.PharmacyStatus) (*models.Pharmacy, error)
	UpdatePharmacyHours(ctx context.Context, id string, hours schedule.Week) error
	// UpsertResponse inserts or updates the (request_id, pharmacy_id) row.
	UpsertResponse(ctx context.Context, r *models.Response) error
}

type AuditStore interface {
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
	RecentAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

type SummaryStore interface {
	CountRequests(ctx context.Context, statuses ...models.RequestStatus) (int, error)
	CountPharmacies(ctx context.Context, statuses ...models.PharmacyStatus) (int, error)
	RequestsSince(ctx context.Context, since time.Time, limit int) ([]models.Request, error)
	RecentPharmacies(ctx context.Context, limit int) ([]models.Pharmacy, error)
}

type Store interface {
	RequestStore
	PharmacyStore
	AuditStore
	SummaryStore
	Ping(ctx context.Context) error
	Close() error
}

const (
	DefaultRequestLimit  = 100
	MaxRequestLimit      = 500
	PharmacyListLimit    = 200
	OpenRequestListLimit = 200
)

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
