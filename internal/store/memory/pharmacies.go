// server/internal/store/memory/pharmacies.go
package memory

import (
	"context"
	"sort"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/schedule"
	"mediradar-api-server/internal/store"

	"github.com/google/uuid"
)

func (s *Store) findPharmacy(match func(*models.Pharmacy) bool) *models.Pharmacy {
	for _, p := range s.pharmacies {
		if match(p) {
			return p
		}
	}
	return nil
}

func byUpdatedDesc(items []models.Pharmacy) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
}

func (s *Store) ListPharmacies(_ context.Context, f store.PharmacyFilter) ([]models.Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Pharmacy{}
	for i := len(s.pharmacies) - 1; i >= 0; i-- {
		p := s.pharmacies[i]
		if f.Status != "" && string(p.Status) != f.Status {
			continue
		}
		out = append(out, *p)
	}
	byUpdatedDesc(out)
	limit := store.ClampLimit(f.Limit, store.PharmacyListLimit, store.PharmacyListLimit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetPharmacy(_ context.Context, id string) (*models.Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findPharmacy(func(p *models.Pharmacy) bool { return p.ID == id })
	if p == nil {
		return nil, store.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) GetPharmacyByOwner(_ context.Context, ownerID string) (*models.Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findPharmacy(func(p *models.Pharmacy) bool { return p.OwnerID == ownerID })
	if p == nil {
		return nil, store.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) EnsurePharmacy(_ context.Context, p *models.Pharmacy) (*models.Pharmacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.findPharmacy(func(e *models.Pharmacy) bool { return e.OwnerID == p.OwnerID }); existing != nil {
		c := *existing
		return &c, nil
	}
	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := s.now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.pharmacies = append(s.pharmacies, &stored)
	c := stored
	return &c, nil
}

func (s *Store) SetPharmacyStatus(_ context.Context, id string, from, to models.PharmacyStatus) (*models.Pharmacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPharmacy(func(p *models.Pharmacy) bool { return p.ID == id })
	if p == nil {
		return nil, store.ErrNotFound
	}
	if p.Status != from {
		return nil, store.ErrConflict
	}
	p.Status = to
	p.UpdatedAt = s.now().UTC()
	c := *p
	return &c, nil
}

func (s *Store) UpdatePharmacyHours(_ context.Context, id string, hours schedule.Week) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPharmacy(func(p *models.Pharmacy) bool { return p.ID == id })
	if p == nil {
		return store.ErrNotFound
	}
	p.Hours = hours
	p.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) UpsertResponse(_ context.Context, r *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findRequest(func(req *models.Request) bool { return req.ID == r.RequestID }) == nil {
		return store.ErrNotFound
	}
	now := s.now().UTC()
	key := [2]string{r.RequestID, r.PharmacyID}
	if existing, ok := s.responses[key]; ok {
		existing.Kind = r.Kind
		existing.GenericOnly = r.GenericOnly
		existing.UpdatedAt = now
		*r = *existing
		return nil
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt, r.UpdatedAt = now, now
	stored := *r
	s.responses[key] = &stored
	return nil
}

// Responses returns every stored response; used by tests.
func (s *Store) Responses() []models.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Response, 0, len(s.responses))
	for _, r := range s.responses {
		out = append(out, *r)
	}
	return out
}
