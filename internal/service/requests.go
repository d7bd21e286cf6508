// server/internal/service/requests.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediradar-api-server/internal/lifecycle"
	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/socket"
	"mediradar-api-server/internal/store"

	"go.uber.org/zap"
)

const tokenAttempts = 3

type CreateRequestInput struct {
	Lang         string
	City         string
	MedicineName string
	Substance    string
	Type         string
	Quantity     int
	AllowGeneric bool
	RxNumber     string
}

type ReplyInput struct {
	Token        string
	PharmacyName string
	Phone        string
	Address      string
	Lat          *float64
	Lng          *float64
}

// RequestService runs the public request lifecycle: create, reserve, extend, reply and status.
type RequestService struct {
	store    store.RequestStore
	policy   lifecycle.Policy
	notify   Notifier
	recorder Recorder
	log      *zap.Logger

	now      func() time.Time
	newToken func() (string, error)
}

func NewRequestService(s store.RequestStore, policy lifecycle.Policy, notify Notifier, recorder Recorder, log *zap.Logger) *RequestService {
	if notify == nil {
		notify = nopNotifier{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RequestService{
		store:    s,
		policy:   policy,
		notify:   notify,
		recorder: recorder,
		log:      log,
		now:      time.Now,
		newToken: lifecycle.NewStatusToken,
	}
}

// WithClock overrides the time source.
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Create inserts a pending request under a fresh status token, retrying on token collisions.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	in.MedicineName = strings.TrimSpace(in.MedicineName)
	if in.MedicineName == "" || in.Quantity < 1 {
		return nil, ErrInvalidPayload
	}
	lang := strings.TrimSpace(in.Lang)
	if lang == "" {
		lang = "el"
	}

	r := &models.Request{
		Status:       models.StatusPending,
		Lang:         lang,
		City:         strings.TrimSpace(in.City),
		MedicineName: in.MedicineName,
		Substance:    strings.TrimSpace(in.Substance),
		Type:         strings.TrimSpace(in.Type),
		Quantity:     in.Quantity,
		AllowGeneric: in.AllowGeneric,
		RxNumber:     strings.TrimSpace(in.RxNumber),
	}

	var err error
	for attempt := 1; attempt <= tokenAttempts; attempt++ {
		if r.StatusToken, err = s.newToken(); err != nil {
			return nil, fmt.Errorf("generate status token: %w", err)
		}
		err = s.store.CreateRequest(ctx, r)
		if !errors.Is(err, store.ErrDuplicateToken) {
			break
		}
		s.log.Warn("status token collision, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.recorder.Event(metrics.EventRequestCreated)
	s.notify.Publish(socket.PharmacyTopic, EventRequestCreated, r)
	return r, nil
}

func (s *RequestService) byToken(ctx context.Context, token string) (*models.Request, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	r, err := s.store.GetRequestByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// Reserve holds a pending request for the reservation window.
func (s *RequestService) Reserve(ctx context.Context, token string) (time.Time, error) {
	r, err := s.byToken(ctx, token)
	if err != nil {
		return time.Time{}, err
	}
	if !lifecycle.CanTransition(r.Status, models.StatusReserved) {
		return time.Time{}, ErrInvalidTransition
	}

	hold := s.policy.ReserveUntil(s.now())
	updated, err := s.store.TransitionRequest(ctx, r.ID, r.Status, models.StatusReserved, &hold)
	switch {
	case errors.Is(err, store.ErrConflict):
		s.recorder.Event(metrics.EventTransitionLost)
		return time.Time{}, ErrInvalidTransition
	case err != nil:
		return time.Time{}, fmt.Errorf("reserve request: %w", notFound(err))
	}

	s.recorder.Event(metrics.EventReserved)
	publishStatus(s.notify, updated)
	if updated.HoldUntil != nil {
		hold = *updated.HoldUntil
	}
	return hold, nil
}

// ExtendHold pushes hold_until to max(hold_until, now) + the extension, once per civil day.
func (s *RequestService) ExtendHold(ctx context.Context, token string) (time.Time, error) {
	r, err := s.byToken(ctx, token)
	if err != nil {
		return time.Time{}, err
	}
	now := s.now()
	if s.policy.UsedToday(r.ExtendUsedAt, now) {
		return time.Time{}, ErrOncePerDay
	}

	target := s.policy.ExtendedHold(r.HoldUntil, now)
	stored, err := s.store.ExtendHold(ctx, r.ID, target, s.policy.Today(now))
	switch {
	case errors.Is(err, store.ErrConflict):
		return time.Time{}, ErrOncePerDay
	case err != nil:
		return time.Time{}, fmt.Errorf("extend hold: %w", notFound(err))
	}

	s.recorder.Event(metrics.EventHoldExtended)
	s.notify.Publish(socket.RequestTopic(r.ID), EventHoldExtended, map[string]any{"hold_until": stored})
	return stored, nil
}

// Reply records a pharmacy's availability. The first reply on a pending request marks it available;
// later or racing replies are stored without changing status.
func (s *RequestService) Reply(ctx context.Context, in ReplyInput) error {
	in.PharmacyName = strings.TrimSpace(in.PharmacyName)
	if strings.TrimSpace(in.Token) == "" || in.PharmacyName == "" {
		return ErrInvalidPayload
	}
	r, err := s.byToken(ctx, in.Token)
	if err != nil {
		return err
	}

	reply := &models.Reply{
		RequestID:    r.ID,
		PharmacyName: in.PharmacyName,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Lat:          in.Lat,
		Lng:          in.Lng,
		Available:    true,
	}
	if err := s.store.InsertReply(ctx, reply); err != nil {
		return fmt.Errorf("insert reply: %w", notFound(err))
	}
	s.recorder.Event(metrics.EventReplyReceived)
	s.notify.Publish(socket.RequestTopic(r.ID), EventReplyCreated, reply)

	if r.Status != models.StatusPending {
		return nil
	}
	updated, err := s.store.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusAvailable, nil)
	switch {
	case errors.Is(err, store.ErrConflict):
		s.recorder.Event(metrics.EventTransitionLost)
		return nil
	case err != nil:
		return fmt.Errorf("mark request available: %w", err)
	}
	publishStatus(s.notify, updated)
	return nil
}

// Status returns the public view of a request and its replies.
func (s *RequestService) Status(ctx context.Context, token string) (*models.StatusView, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	view, err := s.store.RequestStatus(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, notFound(err)
	}
	if view.Replies == nil {
		view.Replies = []models.Reply{}
	}
	return view, nil
}

// Lookup resolves a status token to its request.
func (s *RequestService) Lookup(ctx context.Context, token string) (*models.Request, error) {
	return s.byToken(ctx, token)
}
