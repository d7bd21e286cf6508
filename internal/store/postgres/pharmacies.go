// server/internal/store/postgres/pharmacies.go
package postgres

import (
	"context"
	"fmt"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/schedule"
	"mediradar-api-server/internal/store"
)

const pharmacyColumns = `id, owner_id, name, city, address, phone, status, hours_json, created_at, updated_at`

func (s *Store) ListPharmacies(ctx context.Context, f store.PharmacyFilter) ([]models.Pharmacy, error) {
	limit := store.ClampLimit(f.Limit, store.PharmacyListLimit, store.PharmacyListLimit)
	items := []models.Pharmacy{}
	var err error
	if f.Status != "" {
		err = s.db.SelectContext(ctx, &items, `SELECT `+pharmacyColumns+` FROM pharmacies
			WHERE status = $1 ORDER BY updated_at DESC LIMIT $2`, f.Status, limit)
	} else {
		err = s.db.SelectContext(ctx, &items, `SELECT `+pharmacyColumns+` FROM pharmacies
			ORDER BY updated_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list pharmacies: %w", err)
	}
	return items, nil
}

func (s *Store) getPharmacy(ctx context.Context, where, arg string) (*models.Pharmacy, error) {
	var p models.Pharmacy
	if err := s.db.GetContext(ctx, &p, `SELECT `+pharmacyColumns+` FROM pharmacies WHERE `+where, arg); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *Store) GetPharmacy(ctx context.Context, id string) (*models.Pharmacy, error) {
	return s.getPharmacy(ctx, "id = $1", id)
}

func (s *Store) GetPharmacyByOwner(ctx context.Context, ownerID string) (*models.Pharmacy, error) {
	return s.getPharmacy(ctx, "owner_id = $1", ownerID)
}

func (s *Store) EnsurePharmacy(ctx context.Context, p *models.Pharmacy) (*models.Pharmacy, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pharmacies (owner_id, name, city, address, phone, status, hours_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id) DO NOTHING`,
		p.OwnerID, p.Name, p.City, p.Address, p.Phone, p.Status, p.Hours,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure pharmacy: %w", err)
	}
	return s.GetPharmacyByOwner(ctx, p.OwnerID)
}

func (s *Store) SetPharmacyStatus(ctx context.Context, id string, from, to models.PharmacyStatus) (*models.Pharmacy, error) {
	var p models.Pharmacy
	err := s.db.GetContext(ctx, &p, `
		UPDATE pharmacies SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+pharmacyColumns, id, from, to)
	if err == nil {
		return &p, nil
	}
	if err = mapErr(err); err != store.ErrNotFound {
		return nil, fmt.Errorf("set pharmacy status: %w", err)
	}
	if _, getErr := s.GetPharmacy(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, store.ErrConflict
}

func (s *Store) UpdatePharmacyHours(ctx context.Context, id string, hours schedule.Week) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pharmacies SET hours_json = $2, updated_at = now() WHERE id = $1`, id, hours)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertResponse(ctx context.Context, r *models.Response) error {
	err := s.db.GetContext(ctx, r, `
		INSERT INTO responses (request_id, pharmacy_id, kind, generic_only)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id, pharmacy_id)
		DO UPDATE SET kind = EXCLUDED.kind, generic_only = EXCLUDED.generic_only, updated_at = now()
		RETURNING id, request_id, pharmacy_id, kind, generic_only, created_at, updated_at`,
		r.RequestID, r.PharmacyID, r.Kind, r.GenericOnly,
	)
	return mapErr(err)
}

func (s *Store) RecentPharmacies(ctx context.Context, limit int) ([]models.Pharmacy, error) {
	return s.ListPharmacies(ctx, store.PharmacyFilter{Limit: limit})
}

func (s *Store) CountPharmacies(ctx context.Context, statuses ...models.PharmacyStatus) (int, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	return s.count(ctx, "pharmacies", values)
}
