// server/internal/store/postgres/audit.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mediradar-api-server/internal/models"

	"github.com/lib/pq"
)

func (s *Store) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_audit_logs (action, target_type, target_id, meta, actor_id, actor_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		e.Action, e.TargetType, e.TargetID, e.Meta, e.ActorID, e.ActorEmail,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *Store) RecentAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	items := []models.AuditEntry{}
	err := s.db.SelectContext(ctx, &items, `
		SELECT id, action, target_type, target_id, meta, actor_id, actor_email, created_at
		FROM admin_audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent audit: %w", err)
	}
	return items, nil
}

// count returns the row count of table, restricted to statuses when any are given.
func (s *Store) count(ctx context.Context, table string, statuses []string) (int, error) {
	var n int
	var err error
	if len(statuses) == 0 {
		err = s.db.GetContext(ctx, &n, `SELECT count(*) FROM `+table)
	} else {
		err = s.db.GetContext(ctx, &n, `SELECT count(*) FROM `+table+` WHERE status = ANY($1)`, pq.Array(statuses))
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *Store) CountRequests(ctx context.Context, statuses ...models.RequestStatus) (int, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	return s.count(ctx, "requests", values)
}

func (s *Store) RequestsSince(ctx context.Context, since time.Time, limit int) ([]models.Request, error) {
	items := []models.Request{}
	err := s.db.SelectContext(ctx, &items, `SELECT `+requestColumns+` FROM requests
		WHERE created_at >= $1 ORDER BY created_at ASC LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("requests since: %w", err)
	}
	return items, nil
}
