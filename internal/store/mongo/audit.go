// server/internal/store/mongo/audit.go
package mongo

import (
	"context"
	"fmt"

	"mediradar-api-server/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	doc := *e
	doc.ID = uuid.NewString()
	doc.CreatedAt = s.timestamp()
	if doc.Meta == nil {
		doc.Meta = models.Meta{}
	}
	if _, err := s.audit().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	e.ID, e.CreatedAt = doc.ID, doc.CreatedAt
	return nil
}

func (s *Store) RecentAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	cursor, err := s.audit().Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("find audit: %w", err)
	}
	items := []models.AuditEntry{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode audit: %w", err)
	}
	return items, nil
}
