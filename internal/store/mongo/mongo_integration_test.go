//go:build integration
// +build integration

package mongo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"mediradar-api-server/internal/lifecycle"
	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func getTestStore(t *testing.T) *Store {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to mongo: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("Skipping integration test: cannot ping mongo: %v", err)
	}

	db := client.Database("mediradar_test")
	require.NoError(t, db.Drop(ctx))
	s := New(db)
	require.NoError(t, s.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return s
}

func createTestRequest(t *testing.T, s *Store) *models.Request {
	token, err := lifecycle.NewStatusToken()
	require.NoError(t, err)
	r := &models.Request{
		StatusToken:  token,
		Status:       models.StatusPending,
		Lang:         "el",
		City:         "Athens",
		MedicineName: "Paracetamol",
		Quantity:     1,
	}
	require.NoError(t, s.CreateRequest(context.Background(), r))
	return r
}

func TestMongo_CreateRequest_DuplicateToken(t *testing.T) {
	s := getTestStore(t)
	r := createTestRequest(t, s)

	dup := &models.Request{StatusToken: r.StatusToken, Status: models.StatusPending, MedicineName: "x", Quantity: 1}
	assert.ErrorIs(t, s.CreateRequest(context.Background(), dup), store.ErrDuplicateToken)
}

func TestMongo_TransitionRequest(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()
	r := createTestRequest(t, s)

	hold := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	got, err := s.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusReserved, &hold)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReserved, got.Status)
	require.NotNil(t, got.HoldUntil)
	assert.True(t, got.HoldUntil.Equal(hold))

	_, err = s.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusReserved, &hold)
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.TransitionRequest(ctx, "missing", models.StatusPending, models.StatusReserved, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMongo_TransitionRequest_HoldNeverMovesBack(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()
	r := createTestRequest(t, s)

	later := time.Now().Add(75 * time.Minute).UTC().Truncate(time.Millisecond)
	_, err := s.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusReserved, &later)
	require.NoError(t, err)
	_, err = s.TransitionRequest(ctx, r.ID, models.StatusReserved, models.StatusPending, nil)
	require.NoError(t, err)

	earlier := later.Add(-10 * time.Minute)
	got, err := s.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusReserved, &earlier)
	require.NoError(t, err)
	require.NotNil(t, got.HoldUntil)
	assert.True(t, got.HoldUntil.Equal(later))
}

func TestMongo_ExtendHold_OncePerDay(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()
	r := createTestRequest(t, s)

	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	target := time.Now().Add(15 * time.Minute).UTC()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ExtendHold(ctx, r.ID, target, today)
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, store.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	view, err := s.RequestStatus(ctx, r.StatusToken)
	require.NoError(t, err)
	require.NotNil(t, view.ExtendUsedAt)
	assert.Equal(t, "2024-05-10", *view.ExtendUsedAt)
}

func TestMongo_RepliesAndStatus(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()
	r := createTestRequest(t, s)

	require.NoError(t, s.InsertReply(ctx, &models.Reply{RequestID: r.ID, PharmacyName: "A", Available: true}))
	require.NoError(t, s.InsertReply(ctx, &models.Reply{RequestID: r.ID, PharmacyName: "B", Available: true}))
	assert.ErrorIs(t, s.InsertReply(ctx, &models.Reply{RequestID: "missing", PharmacyName: "C"}), store.ErrNotFound)

	view, err := s.RequestStatus(ctx, r.StatusToken)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, view.Status)
	assert.Len(t, view.Replies, 2)

	_, err = s.RequestStatus(ctx, "zzzzzzzz")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMongo_UpsertResponse(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()
	r := createTestRequest(t, s)

	p, err := s.EnsurePharmacy(ctx, &models.Pharmacy{OwnerID: "it-owner", Status: models.PharmacyApproved})
	require.NoError(t, err)

	first := &models.Response{RequestID: r.ID, PharmacyID: p.ID, Kind: models.ResponseAvailable}
	require.NoError(t, s.UpsertResponse(ctx, first))
	second := &models.Response{RequestID: r.ID, PharmacyID: p.ID, Kind: models.ResponseGeneric, GenericOnly: true}
	require.NoError(t, s.UpsertResponse(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	n, err := s.responses().CountDocuments(ctx, bson.M{"request_id": r.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMongo_EnsurePharmacy_Concurrent(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 4)
	errs := make([]error, len(ids))
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.EnsurePharmacy(ctx, &models.Pharmacy{OwnerID: "owner-race", Name: "Race", Status: models.PharmacyPending})
			errs[i] = err
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err)
		assert.Equal(t, ids[0], ids[i])
	}
	n, err := s.pharmacies().CountDocuments(ctx, bson.M{"owner_id": "owner-race"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
