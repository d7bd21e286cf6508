// server/internal/store/mongo/requests.go
package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateRequest(ctx context.Context, r *models.Request) error {
	doc := *r
	doc.ID = uuid.NewString()
	now := s.timestamp()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if _, err := s.requests().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateToken
		}
		return fmt.Errorf("insert request: %w", err)
	}
	r.ID, r.CreatedAt, r.UpdatedAt = doc.ID, doc.CreatedAt, doc.UpdatedAt
	return nil
}

func (s *Store) findRequest(ctx context.Context, filter bson.M) (*models.Request, error) {
	var r models.Request
	if err := s.requests().FindOne(ctx, filter).Decode(&r); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) GetRequestByToken(ctx context.Context, token string) (*models.Request, error) {
	return s.findRequest(ctx, bson.M{"status_token": token})
}

func (s *Store) GetRequestByID(ctx context.Context, id string) (*models.Request, error) {
	return s.findRequest(ctx, bson.M{"_id": id})
}

func (s *Store) missOrConflict(ctx context.Context, id string) error {
	n, err := s.requests().CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *Store) TransitionRequest(ctx context.Context, id string, from, to models.RequestStatus, holdUntil *time.Time) (*models.Request, error) {
	update := bson.M{"$set": bson.M{"status": to, "updated_at": s.timestamp()}}
	if holdUntil != nil {
		update["$max"] = bson.M{"hold_until": holdUntil.UTC()}
	}
	var r models.Request
	err := s.requests().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		update,
		returnAfter,
	).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, s.missOrConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("transition request: %w", err)
	}
	return &r, nil
}

func (s *Store) ExtendHold(ctx context.Context, id string, holdUntil, today time.Time) (time.Time, error) {
	var r models.Request
	err := s.requests().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "extend_used_at": bson.M{"$ne": today}},
		bson.M{
			"$max": bson.M{"hold_until": holdUntil.UTC()},
			"$set": bson.M{"extend_used_at": today, "updated_at": s.timestamp()},
		},
		returnAfter,
	).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, s.missOrConflict(ctx, id)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("extend hold: %w", err)
	}
	if r.HoldUntil == nil {
		return holdUntil.UTC(), nil
	}
	return r.HoldUntil.UTC(), nil
}

func (s *Store) SetPrescriptionImage(ctx context.Context, id, url string) error {
	res, err := s.requests().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"rx_image_url": url, "updated_at": s.timestamp()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertReply(ctx context.Context, reply *models.Reply) error {
	n, err := s.requests().CountDocuments(ctx, bson.M{"_id": reply.RequestID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	doc := *reply
	doc.ID = uuid.NewString()
	doc.CreatedAt = s.timestamp()
	if _, err := s.replies().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	reply.ID, reply.CreatedAt = doc.ID, doc.CreatedAt
	return nil
}

func (s *Store) RequestStatus(ctx context.Context, token string) (*models.StatusView, error) {
	r, err := s.GetRequestByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	cursor, err := s.replies().Find(ctx, bson.M{"request_id": r.ID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find replies: %w", err)
	}
	replies := []models.Reply{}
	if err := cursor.All(ctx, &replies); err != nil {
		return nil, fmt.Errorf("decode replies: %w", err)
	}

	view := &models.StatusView{
		Status:       r.Status,
		HoldUntil:    r.HoldUntil,
		City:         r.City,
		MedicineName: r.MedicineName,
		Replies:      replies,
	}
	if r.ExtendUsedAt != nil {
		d := r.ExtendUsedAt.UTC().Format(models.DateLayout)
		view.ExtendUsedAt = &d
	}
	return view, nil
}

func containsRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

func (s *Store) ListRequests(ctx context.Context, f store.RequestFilter) ([]models.Request, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.City != "" {
		filter["city"] = containsRegex(f.City)
	}
	if f.Query != "" {
		re := containsRegex(f.Query)
		filter["$or"] = bson.A{
			bson.M{"medicine_name": re},
			bson.M{"substance": re},
			bson.M{"rx_number": re},
		}
	}
	limit := store.ClampLimit(f.Limit, store.DefaultRequestLimit, store.MaxRequestLimit)
	return s.findRequests(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)))
}

func (s *Store) findRequests(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Request, error) {
	cursor, err := s.requests().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find requests: %w", err)
	}
	items := []models.Request{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	return items, nil
}

func (s *Store) CountRequests(ctx context.Context, statuses ...models.RequestStatus) (int, error) {
	n, err := s.requests().CountDocuments(ctx, statusIn(statuses))
	return int(n), err
}

func (s *Store) RequestsSince(ctx context.Context, since time.Time, limit int) ([]models.Request, error) {
	return s.findRequests(ctx, bson.M{"created_at": bson.M{"$gte": since.UTC()}}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)))
}
