// server/internal/store/mongo/pharmacies.go
package mongo

import (
	"context"
	"fmt"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/schedule"
	"mediradar-api-server/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) findPharmacies(ctx context.Context, filter bson.M, limit int) ([]models.Pharmacy, error) {
	cursor, err := s.pharmacies().Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("find pharmacies: %w", err)
	}
	items := []models.Pharmacy{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode pharmacies: %w", err)
	}
	return items, nil
}

func (s *Store) ListPharmacies(ctx context.Context, f store.PharmacyFilter) ([]models.Pharmacy, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return s.findPharmacies(ctx, filter, store.ClampLimit(f.Limit, store.PharmacyListLimit, store.PharmacyListLimit))
}

func (s *Store) RecentPharmacies(ctx context.Context, limit int) ([]models.Pharmacy, error) {
	return s.findPharmacies(ctx, bson.M{}, limit)
}

func (s *Store) findPharmacy(ctx context.Context, filter bson.M) (*models.Pharmacy, error) {
	var p models.Pharmacy
	if err := s.pharmacies().FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *Store) GetPharmacy(ctx context.Context, id string) (*models.Pharmacy, error) {
	return s.findPharmacy(ctx, bson.M{"_id": id})
}

func (s *Store) GetPharmacyByOwner(ctx context.Context, ownerID string) (*models.Pharmacy, error) {
	return s.findPharmacy(ctx, bson.M{"owner_id": ownerID})
}

// EnsurePharmacy upserts on owner_id with $setOnInsert. A duplicate key error means a concurrent
// first visit won the insert, so the stored row is read back either way.
func (s *Store) EnsurePharmacy(ctx context.Context, p *models.Pharmacy) (*models.Pharmacy, error) {
	now := s.timestamp()
	doc := *p
	doc.ID = uuid.NewString()
	doc.CreatedAt, doc.UpdatedAt = now, now

	_, err := s.pharmacies().UpdateOne(ctx,
		bson.M{"owner_id": p.OwnerID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("ensure pharmacy: %w", err)
	}
	return s.GetPharmacyByOwner(ctx, p.OwnerID)
}

func (s *Store) SetPharmacyStatus(ctx context.Context, id string, from, to models.PharmacyStatus) (*models.Pharmacy, error) {
	var p models.Pharmacy
	err := s.pharmacies().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": s.timestamp()}},
		returnAfter,
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("set pharmacy status: %w", err)
	}
	if _, err := s.GetPharmacy(ctx, id); err != nil {
		return nil, err
	}
	return nil, store.ErrConflict
}

func (s *Store) UpdatePharmacyHours(ctx context.Context, id string, hours schedule.Week) error {
	res, err := s.pharmacies().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"hours_json": hours, "updated_at": s.timestamp()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertResponse(ctx context.Context, r *models.Response) error {
	n, err := s.requests().CountDocuments(ctx, bson.M{"_id": r.RequestID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	now := s.timestamp()
	filter := bson.M{"request_id": r.RequestID, "pharmacy_id": r.PharmacyID}
	update := bson.M{
		"$set": bson.M{"kind": r.Kind, "generic_only": r.GenericOnly, "updated_at": now},
		"$setOnInsert": bson.M{
			"_id":         uuid.NewString(),
			"request_id":  r.RequestID,
			"pharmacy_id": r.PharmacyID,
			"created_at":  now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	// Two concurrent upserts can both miss and race on the unique index; the loser retries as an update.
	for attempt := 0; ; attempt++ {
		err = s.responses().FindOneAndUpdate(ctx, filter, update, opts).Decode(r)
		if err == nil || !mongo.IsDuplicateKeyError(err) || attempt == 1 {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

func (s *Store) CountPharmacies(ctx context.Context, statuses ...models.PharmacyStatus) (int, error) {
	n, err := s.pharmacies().CountDocuments(ctx, statusIn(statuses))
	return int(n), err
}
