// server/internal/store/postgres/requests.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store"
)

const requestColumns = `id, status_token, status, lang, city, medicine_name, substance, type, quantity,
	allow_generic, rx_number, rx_image_url, hold_until, extend_used_at, created_at, updated_at`

func (s *Store) CreateRequest(ctx context.Context, r *models.Request) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO requests (status_token, status, lang, city, medicine_name, substance, type,
		                      quantity, allow_generic, rx_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		r.StatusToken, r.Status, r.Lang, r.City, r.MedicineName, r.Substance, r.Type,
		r.Quantity, r.AllowGeneric, r.RxNumber,
	)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if pqCode(err) == codeUniqueViolation {
			return store.ErrDuplicateToken
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *Store) getRequest(ctx context.Context, where string, arg any) (*models.Request, error) {
	var r models.Request
	err := s.db.GetContext(ctx, &r, `SELECT `+requestColumns+` FROM requests WHERE `+where, arg)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) GetRequestByToken(ctx context.Context, token string) (*models.Request, error) {
	return s.getRequest(ctx, "status_token = $1", token)
}

func (s *Store) GetRequestByID(ctx context.Context, id string) (*models.Request, error) {
	return s.getRequest(ctx, "id = $1", id)
}

// missOrConflict resolves a conditional update that touched no row.
func (s *Store) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id); err != nil {
		return mapErr(err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (s *Store) TransitionRequest(ctx context.Context, id string, from, to models.RequestStatus, holdUntil *time.Time) (*models.Request, error) {
	var r models.Request
	err := s.db.GetContext(ctx, &r, `
		UPDATE requests
		SET status = $3, hold_until = GREATEST(hold_until, $4::timestamptz), updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+requestColumns,
		id, from, to, holdUntil,
	)
	if err != nil {
		if err = mapErr(err); err == store.ErrNotFound {
			return nil, s.missOrConflict(ctx, id)
		}
		return nil, fmt.Errorf("transition request: %w", err)
	}
	return &r, nil
}

func (s *Store) ExtendHold(ctx context.Context, id string, holdUntil, today time.Time) (time.Time, error) {
	day := today.Format(models.DateLayout)
	var stored time.Time
	err := s.db.GetContext(ctx, &stored, `
		UPDATE requests
		SET hold_until = GREATEST(COALESCE(hold_until, $2), $2),
		    extend_used_at = $3::date,
		    updated_at = now()
		WHERE id = $1 AND (extend_used_at IS NULL OR extend_used_at <> $3::date)
		RETURNING hold_until`,
		id, holdUntil, day,
	)
	if err != nil {
		if err = mapErr(err); err == store.ErrNotFound {
			return time.Time{}, s.missOrConflict(ctx, id)
		}
		return time.Time{}, fmt.Errorf("extend hold: %w", err)
	}
	return stored.UTC(), nil
}

func (s *Store) SetPrescriptionImage(ctx context.Context, id, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET rx_image_url = $2, updated_at = now() WHERE id = $1`, id, url)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertReply(ctx context.Context, reply *models.Reply) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO replies (request_id, pharmacy_name, phone, address, lat, lng, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		reply.RequestID, reply.PharmacyName, reply.Phone, reply.Address, reply.Lat, reply.Lng, reply.Available,
	)
	if err := row.Scan(&reply.ID, &reply.CreatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

type statusRow struct {
	Status       models.RequestStatus `db:"status"`
	HoldUntil    *time.Time           `db:"hold_until"`
	ExtendUsedAt *time.Time           `db:"extend_used_at"`
	City         string               `db:"city"`
	MedicineName string               `db:"medicine_name"`
}

// RequestStatus goes through the get_request_status and get_replies_by_token functions so the
// lookup matches what Supabase clients see over RPC.
func (s *Store) RequestStatus(ctx context.Context, token string) (*models.StatusView, error) {
	var rows []statusRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT status, hold_until, extend_used_at, city, medicine_name FROM get_request_status($1)`, token); err != nil {
		return nil, fmt.Errorf("get_request_status: %w", err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	head := rows[0]

	replies := []models.Reply{}
	if err := s.db.SelectContext(ctx, &replies, `
		SELECT id, request_id, pharmacy_name, phone, address, lat, lng, available, created_at
		FROM get_replies_by_token($1)`, token); err != nil {
		return nil, fmt.Errorf("get_replies_by_token: %w", err)
	}

	view := &models.StatusView{
		Status:       head.Status,
		HoldUntil:    head.HoldUntil,
		City:         head.City,
		MedicineName: head.MedicineName,
		Replies:      replies,
	}
	if head.ExtendUsedAt != nil {
		d := head.ExtendUsedAt.Format(models.DateLayout)
		view.ExtendUsedAt = &d
	}
	return view, nil
}

func (s *Store) ListRequests(ctx context.Context, f store.RequestFilter) ([]models.Request, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.City != "" {
		where = append(where, "city ILIKE "+arg(containsPattern(f.City)))
	}
	if f.Query != "" {
		p := arg(containsPattern(f.Query))
		where = append(where, fmt.Sprintf("(medicine_name ILIKE %[1]s OR substance ILIKE %[1]s OR rx_number ILIKE %[1]s)", p))
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(store.ClampLimit(f.Limit, store.DefaultRequestLimit, store.MaxRequestLimit))

	items := []models.Request{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return items, nil
}
