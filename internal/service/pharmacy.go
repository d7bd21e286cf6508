// server/internal/service/pharmacy.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/schedule"
	"mediradar-api-server/internal/store"

	"go.uber.org/zap"
)

// PortalService backs the pharmacy dashboard: profile, opening hours, open requests and responses.
type PortalService struct {
	store    store.Store
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewPortalService(s store.Store, recorder Recorder, log *zap.Logger) *PortalService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &PortalService{store: s, recorder: recorder, log: log, now: time.Now}
}

func (s *PortalService) WithClock(now func() time.Time) *PortalService {
	s.now = now
	return s
}

// Me returns the caller's pharmacy, creating a pending one with a closed schedule on first visit.
func (s *PortalService) Me(ctx context.Context, user *auth.User) (*models.Pharmacy, error) {
	p, err := s.store.GetPharmacyByOwner(ctx, user.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load pharmacy: %w", err)
	}

	name, _ := user.UserMetadata["pharmacy_name"].(string)
	created, err := s.store.EnsurePharmacy(ctx, &models.Pharmacy{
		OwnerID: user.ID,
		Name:    strings.TrimSpace(name),
		Status:  models.PharmacyPending,
		Hours:   schedule.Closed(),
	})
	if err != nil {
		return nil, fmt.Errorf("create pharmacy: %w", err)
	}
	s.log.Info("pharmacy created for owner", zap.String("owner_id", user.ID), zap.String("pharmacy_id", created.ID))
	return created, nil
}

type HoursView struct {
	Hours   schedule.Week    `json:"hours"`
	Display []schedule.Group `json:"display"`
}

func displayLocale(user *auth.User) string {
	if lang, ok := user.UserMetadata["lang"].(string); ok && lang != "" {
		return lang
	}
	return "el"
}

func (s *PortalService) Hours(ctx context.Context, user *auth.User) (*HoursView, error) {
	p, err := s.Me(ctx, user)
	if err != nil {
		return nil, err
	}
	return &HoursView{Hours: p.Hours, Display: schedule.Display(p.Hours, displayLocale(user))}, nil
}

// UpdateHours validates and saves a submitted schedule. Any invalid open day rejects the whole week.
func (s *PortalService) UpdateHours(ctx context.Context, user *auth.User, raw []byte) (*HoursView, error) {
	week, dayErrs, err := schedule.Parse(raw)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	if len(dayErrs) > 0 {
		return nil, &HoursError{Days: dayErrs}
	}

	p, err := s.Me(ctx, user)
	if err != nil {
		return nil, err
	}
	by := user.ContactEmail()
	if by == "" {
		by = user.ID
	}
	week.Stamp(s.now(), by)

	if err := s.store.UpdatePharmacyHours(ctx, p.ID, week); err != nil {
		return nil, fmt.Errorf("save hours: %w", notFound(err))
	}
	return &HoursView{Hours: week, Display: schedule.Display(week, displayLocale(user))}, nil
}

// OpenRequests lists pending requests, newest first, optionally narrowed to a city.
func (s *PortalService) OpenRequests(ctx context.Context, city string) ([]models.Request, error) {
	return s.store.ListRequests(ctx, store.RequestFilter{
		Status: string(models.StatusPending),
		City:   strings.TrimSpace(city),
		Limit:  store.OpenRequestListLimit,
	})
}

type ResponseInput struct {
	RequestID   string
	Kind        string
	GenericOnly bool
}

// Respond upserts the caller pharmacy's response to a request. Only approved pharmacies may respond.
func (s *PortalService) Respond(ctx context.Context, user *auth.User, in ResponseInput) (*models.Response, error) {
	kind := models.ResponseKind(strings.ToLower(strings.TrimSpace(in.Kind)))
	if strings.TrimSpace(in.RequestID) == "" || !kind.Valid() {
		return nil, ErrInvalidPayload
	}
	p, err := s.Me(ctx, user)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PharmacyApproved {
		return nil, ErrPharmacyNotApproved
	}

	resp := &models.Response{
		RequestID:   strings.TrimSpace(in.RequestID),
		PharmacyID:  p.ID,
		Kind:        kind,
		GenericOnly: in.GenericOnly || kind == models.ResponseGeneric,
	}
	if err := s.store.UpsertResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("upsert response: %w", notFound(err))
	}
	s.recorder.Event(metrics.EventResponseUpsert)
	return resp, nil
}
