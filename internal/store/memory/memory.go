// server/internal/store/memory/memory.go

// Package memory is an in-process Store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	requests   []*models.Request
	replies    []models.Reply
	pharmacies []*models.Pharmacy
	responses  map[[2]string]*models.Response
	audit      []models.AuditEntry
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now, responses: map[[2]string]*models.Response{}}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func copyRequest(r *models.Request) *models.Request {
	c := *r
	return &c
}

func (s *Store) CreateRequest(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.StatusToken == r.StatusToken {
			return store.ErrDuplicateToken
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.requests = append(s.requests, copyRequest(r))
	return nil
}

func (s *Store) findRequest(match func(*models.Request) bool) *models.Request {
	for _, r := range s.requests {
		if match(r) {
			return r
		}
	}
	return nil
}

func (s *Store) GetRequestByToken(_ context.Context, token string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.findRequest(func(r *models.Request) bool { return r.StatusToken == token })
	if r == nil {
		return nil, store.ErrNotFound
	}
	return copyRequest(r), nil
}

func (s *Store) GetRequestByID(_ context.Context, id string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.findRequest(func(r *models.Request) bool { return r.ID == id })
	if r == nil {
		return nil, store.ErrNotFound
	}
	return copyRequest(r), nil
}

func (s *Store) TransitionRequest(_ context.Context, id string, from, to models.RequestStatus, holdUntil *time.Time) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRequest(func(r *models.Request) bool { return r.ID == id })
	if r == nil {
		return nil, store.ErrNotFound
	}
	if r.Status != from {
		return nil, store.ErrConflict
	}
	r.Status = to
	if holdUntil != nil && (r.HoldUntil == nil || holdUntil.After(*r.HoldUntil)) {
		h := holdUntil.UTC()
		r.HoldUntil = &h
	}
	r.UpdatedAt = s.now().UTC()
	return copyRequest(r), nil
}

func (s *Store) ExtendHold(_ context.Context, id string, holdUntil, today time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRequest(func(r *models.Request) bool { return r.ID == id })
	if r == nil {
		return time.Time{}, store.ErrNotFound
	}
	if r.ExtendUsedAt != nil && r.ExtendUsedAt.Equal(today) {
		return time.Time{}, store.ErrConflict
	}
	h := holdUntil.UTC()
	if r.HoldUntil != nil && r.HoldUntil.After(h) {
		h = *r.HoldUntil
	}
	r.HoldUntil = &h
	r.ExtendUsedAt = &today
	r.UpdatedAt = s.now().UTC()
	return h, nil
}

func (s *Store) SetPrescriptionImage(_ context.Context, id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRequest(func(r *models.Request) bool { return r.ID == id })
	if r == nil {
		return store.ErrNotFound
	}
	r.RxImageURL = &url
	r.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) InsertReply(_ context.Context, reply *models.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findRequest(func(r *models.Request) bool { return r.ID == reply.RequestID }) == nil {
		return store.ErrNotFound
	}
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	reply.CreatedAt = s.now().UTC()
	s.replies = append(s.replies, *reply)
	return nil
}

func (s *Store) RequestStatus(_ context.Context, token string) (*models.StatusView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.findRequest(func(r *models.Request) bool { return r.StatusToken == token })
	if r == nil {
		return nil, store.ErrNotFound
	}
	view := &models.StatusView{
		Status:       r.Status,
		HoldUntil:    r.HoldUntil,
		City:         r.City,
		MedicineName: r.MedicineName,
		Replies:      []models.Reply{},
	}
	if r.ExtendUsedAt != nil {
		d := r.ExtendUsedAt.Format(models.DateLayout)
		view.ExtendUsedAt = &d
	}
	for _, rep := range s.replies {
		if rep.RequestID == r.ID {
			view.Replies = append(view.Replies, rep)
		}
	}
	return view, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Store) ListRequests(_ context.Context, f store.RequestFilter) ([]models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Request{}
	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if f.Status != "" && string(r.Status) != f.Status {
			continue
		}
		if f.City != "" && !containsFold(r.City, f.City) {
			continue
		}
		if f.Query != "" && !containsFold(r.MedicineName, f.Query) &&
			!containsFold(r.Substance, f.Query) && !containsFold(r.RxNumber, f.Query) {
			continue
		}
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	limit := store.ClampLimit(f.Limit, store.DefaultRequestLimit, store.MaxRequestLimit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
