// server/internal/service/admin.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	summaryWindow        = 30 * 24 * time.Hour
	summaryMaxRows       = 500
	summaryPharmacyLimit = 8
	summaryAuditLimit    = 10
)

// UserCounter reports the number of registered accounts.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

type AdminService struct {
	store    store.Store
	users    UserCounter
	notify   Notifier
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewAdminService(s store.Store, users UserCounter, notify Notifier, recorder Recorder, log *zap.Logger) *AdminService {
	if notify == nil {
		notify = nopNotifier{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &AdminService{store: s, users: users, notify: notify, recorder: recorder, log: log, now: time.Now}
}

func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// audit appends an entry and only logs failures, so a moderation change never fails on its audit row.
func (s *AdminService) audit(ctx context.Context, actor *auth.User, action, targetType, targetID string, meta models.Meta) {
	e := &models.AuditEntry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Meta:       meta,
	}
	if actor != nil {
		if actor.ID != "" {
			id := actor.ID
			e.ActorID = &id
		}
		if email := actor.ContactEmail(); email != "" {
			e.ActorEmail = &email
		}
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Error("failed to write audit log", zap.String("action", action), zap.String("target_id", targetID), zap.Error(err))
	}
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// ListPharmacies returns up to 200 pharmacies, most recently updated first. Unknown status filters are ignored.
func (s *AdminService) ListPharmacies(ctx context.Context, status string) ([]models.Pharmacy, error) {
	f := store.PharmacyFilter{Limit: store.PharmacyListLimit}
	if st := models.PharmacyStatus(strings.ToLower(strings.TrimSpace(status))); st.Valid() {
		f.Status = string(st)
	}
	return s.store.ListPharmacies(ctx, f)
}

func (s *AdminService) UpdatePharmacyStatus(ctx context.Context, actor *auth.User, id, status, reason string) (*models.Pharmacy, error) {
	to := models.PharmacyStatus(strings.ToLower(strings.TrimSpace(status)))
	if strings.TrimSpace(id) == "" || !to.Valid() {
		return nil, ErrInvalidPayload
	}
	existing, err := s.store.GetPharmacy(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	updated, err := s.store.SetPharmacyStatus(ctx, id, existing.Status, to)
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, ErrInvalidTransition
	case err != nil:
		return nil, fmt.Errorf("update pharmacy status: %w", notFound(err))
	}

	s.audit(ctx, actor, models.AuditPharmacyStatusUpdate, "pharmacy", id, models.Meta{
		"name":   existing.Name,
		"from":   string(existing.Status),
		"to":     string(to),
		"reason": nullable(strings.TrimSpace(reason)),
	})
	return updated, nil
}

type RequestQuery struct {
	Status string
	City   string
	Query  string
	Limit  int
}

func (s *AdminService) ListRequests(ctx context.Context, q RequestQuery) ([]models.Request, error) {
	return s.store.ListRequests(ctx, store.RequestFilter{
		Status: strings.ToLower(strings.TrimSpace(q.Status)),
		City:   strings.TrimSpace(q.City),
		Query:  strings.TrimSpace(q.Query),
		Limit:  store.ClampLimit(q.Limit, store.DefaultRequestLimit, store.MaxRequestLimit),
	})
}

// UpdateRequestStatus is the admin override: any known status may be set, guarded only by a
// compare-and-swap on the status read at the start.
func (s *AdminService) UpdateRequestStatus(ctx context.Context, actor *auth.User, id, status, note string) (*models.Request, error) {
	to := models.RequestStatus(strings.ToLower(strings.TrimSpace(status)))
	if strings.TrimSpace(id) == "" || !to.Valid() {
		return nil, ErrInvalidPayload
	}
	existing, err := s.store.GetRequestByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	updated, err := s.store.TransitionRequest(ctx, id, existing.Status, to, nil)
	switch {
	case errors.Is(err, store.ErrConflict):
		s.recorder.Event(metrics.EventTransitionLost)
		return nil, ErrInvalidTransition
	case err != nil:
		return nil, fmt.Errorf("update request status: %w", notFound(err))
	}

	s.recorder.Event(metrics.EventAdminOverride)
	publishStatus(s.notify, updated)
	s.audit(ctx, actor, models.AuditRequestStatusUpdate, "request", id, models.Meta{
		"from": string(existing.Status),
		"to":   string(to),
		"note": nullable(strings.TrimSpace(note)),
	})
	return updated, nil
}

type SummaryMetrics struct {
	TotalRequests       int `json:"totalRequests"`
	PendingRequests     int `json:"pendingRequests"`
	ActiveRequests      int `json:"activeRequests"`
	Pharmacies          int `json:"pharmacies"`
	PharmaciesApproved  int `json:"pharmaciesApproved"`
	PharmaciesSuspended int `json:"pharmaciesSuspended"`
	Users               int `json:"users"`
}

type DayBucket struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Pending  int    `json:"pending"`
	Resolved int    `json:"resolved"`
}

type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Summary struct {
	Metrics          SummaryMetrics      `json:"metrics"`
	StatusBreakdown  map[string]int      `json:"statusBreakdown"`
	RequestsByDay    []DayBucket         `json:"requestsByDay"`
	PharmacySnapshot []models.Pharmacy   `json:"pharmacySnapshot"`
	AuditLog         []models.AuditEntry `json:"auditLog"`
	GeneratedAt      time.Time           `json:"generatedAt"`
	Actor            Actor               `json:"actor"`
}

// resolvedStatuses count toward a day's resolved bucket. "completed" is kept for rows written by
// older clients.
var resolvedStatuses = map[string]bool{"available": true, "reserved": true, "completed": true}

func groupByDay(rows []models.Request) []DayBucket {
	byDate := map[string]*DayBucket{}
	for _, r := range rows {
		date := r.CreatedAt.UTC().Format(models.DateLayout)
		b, ok := byDate[date]
		if !ok {
			b = &DayBucket{Date: date}
			byDate[date] = b
		}
		b.Total++
		status := strings.ToLower(string(r.Status))
		if status == string(models.StatusPending) {
			b.Pending++
		}
		if resolvedStatuses[status] {
			b.Resolved++
		}
	}
	out := make([]DayBucket, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func statusBreakdown(rows []models.Request) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		key := strings.ToLower(string(r.Status))
		if key == "" {
			key = "unknown"
		}
		out[key]++
	}
	return out
}

// Summary builds the admin dashboard. The counts run concurrently; a failing user count is
// logged and reported as zero.
func (s *AdminService) Summary(ctx context.Context, actor *auth.User) (*Summary, error) {
	now := s.now().UTC()
	var m SummaryMetrics

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&m.TotalRequests, func(ctx context.Context) (int, error) { return s.store.CountRequests(ctx) })
	count(&m.PendingRequests, func(ctx context.Context) (int, error) {
		return s.store.CountRequests(ctx, models.StatusPending)
	})
	count(&m.ActiveRequests, func(ctx context.Context) (int, error) {
		return s.store.CountRequests(ctx, store.ActiveStatuses...)
	})
	count(&m.Pharmacies, func(ctx context.Context) (int, error) { return s.store.CountPharmacies(ctx) })
	count(&m.PharmaciesApproved, func(ctx context.Context) (int, error) {
		return s.store.CountPharmacies(ctx, models.PharmacyApproved)
	})
	count(&m.PharmaciesSuspended, func(ctx context.Context) (int, error) {
		return s.store.CountPharmacies(ctx, models.PharmacySuspended)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	recent, err := s.store.RequestsSince(ctx, now.Add(-summaryWindow), summaryMaxRows)
	if err != nil {
		return nil, fmt.Errorf("summary recent requests: %w", err)
	}
	pharmacies, err := s.store.RecentPharmacies(ctx, summaryPharmacyLimit)
	if err != nil {
		return nil, fmt.Errorf("summary pharmacies: %w", err)
	}
	auditLog, err := s.store.RecentAudit(ctx, summaryAuditLimit)
	if err != nil {
		return nil, fmt.Errorf("summary audit log: %w", err)
	}

	if s.users != nil {
		if n, err := s.users.CountUsers(ctx); err != nil {
			s.log.Warn("failed to count users", zap.Error(err))
		} else {
			m.Users = n
		}
	}

	summary := &Summary{
		Metrics:          m,
		StatusBreakdown:  statusBreakdown(recent),
		RequestsByDay:    groupByDay(recent),
		PharmacySnapshot: pharmacies,
		AuditLog:         auditLog,
		GeneratedAt:      now,
	}
	if actor != nil {
		summary.Actor = Actor{ID: actor.ID, Email: actor.Email}
	}
	return summary, nil
}
