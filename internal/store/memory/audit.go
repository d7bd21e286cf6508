// server/internal/store/memory/audit.go
package memory

import (
	"context"
	"time"

	"mediradar-api-server/internal/models"

	"github.com/google/uuid"
)

func (s *Store) AppendAudit(_ context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = s.now().UTC()
	s.audit = append(s.audit, *e)
	return nil
}

func (s *Store) RecentAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.AuditEntry{}
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}

func (s *Store) CountRequests(_ context.Context, statuses ...models.RequestStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.requests {
		if len(statuses) == 0 || containsStatus(statuses, r.Status) {
			n++
		}
	}
	return n, nil
}

func containsStatus[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Store) CountPharmacies(_ context.Context, statuses ...models.PharmacyStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.pharmacies {
		if len(statuses) == 0 || containsStatus(statuses, p.Status) {
			n++
		}
	}
	return n, nil
}

func (s *Store) RequestsSince(_ context.Context, since time.Time, limit int) ([]models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Request{}
	for _, r := range s.requests {
		if r.CreatedAt.Before(since) {
			continue
		}
		out = append(out, *r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) RecentPharmacies(_ context.Context, limit int) ([]models.Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Pharmacy, 0, len(s.pharmacies))
	for _, p := range s.pharmacies {
		out = append(out, *p)
	}
	byUpdatedDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
