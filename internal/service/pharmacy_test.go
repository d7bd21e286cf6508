package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var owner = &auth.User{ID: "owner-1", Email: "pharma@example.com", UserMetadata: map[string]any{"pharmacy_name": "Φαρμακείο Κέντρο"}}

func (f *fixture) portal() *PortalService {
	return NewPortalService(f.store, f.recorder, zap.NewNop()).WithClock(f.clock.Now)
}

func TestPortal_MeCreatesPendingPharmacyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.portal()

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.Me(ctx, owner)
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	p, err := svc.Me(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, models.PharmacyPending, p.Status)
	assert.Equal(t, "Φαρμακείο Κέντρο", p.Name)

	n, _ := f.store.CountPharmacies(ctx)
	assert.Equal(t, 1, n)
}

func TestPortal_UpdateHours(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.portal()

	view, err := svc.UpdateHours(ctx, owner, []byte(`{"1": {"open": true, "start": "8:00", "end": "1400"}, "2": {"range": "09:00-17:00"}}`))
	require.NoError(t, err)
	assert.Equal(t, "08:00", view.Hours.Days[1].Start)
	assert.Equal(t, "14:00", view.Hours.Days[1].End)
	require.NotNil(t, view.Hours.Meta.UpdatedBy)
	assert.Equal(t, "pharma@example.com", *view.Hours.Meta.UpdatedBy)
	assert.NotEmpty(t, view.Display)

	stored, err := svc.Hours(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, view.Hours.Days, stored.Hours.Days)
}

func TestPortal_UpdateHours_RejectsInvalidDays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.portal()

	_, err := svc.UpdateHours(ctx, owner, []byte(`{"1": {"open": true, "start": "14:00", "end": "09:00"}, "3": {"open": true, "start": "xx", "end": "10:00"}}`))
	var hoursErr *HoursError
	require.True(t, errors.As(err, &hoursErr))
	assert.ElementsMatch(t, []string{"order", "invalid"}, []string{hoursErr.Days[0].Code, hoursErr.Days[1].Code})

	_, err = svc.UpdateHours(ctx, owner, []byte(`"monday"`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	view, err := svc.Hours(ctx, owner)
	require.NoError(t, err)
	assert.False(t, view.Hours.Days[1].Open)
}

func TestPortal_OpenRequests(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.create(t)
	f.clock.Set(f.clock.Now().Add(time.Minute))
	b := f.create(t)
	f.clock.Set(f.clock.Now().Add(time.Minute))
	c := f.create(t)
	_, err := f.requests.Reserve(ctx, c.StatusToken)
	require.NoError(t, err)

	items, err := f.portal().OpenRequests(ctx, "athens")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	items, _ = f.portal().OpenRequests(ctx, "Patras")
	assert.Empty(t, items)
}

func TestPortal_Respond(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.portal()
	r := f.create(t)

	_, err := svc.Respond(ctx, owner, ResponseInput{RequestID: r.ID, Kind: "available"})
	assert.ErrorIs(t, err, ErrPharmacyNotApproved)

	p, _ := svc.Me(ctx, owner)
	_, err = f.store.SetPharmacyStatus(ctx, p.ID, models.PharmacyPending, models.PharmacyApproved)
	require.NoError(t, err)

	first, err := svc.Respond(ctx, owner, ResponseInput{RequestID: r.ID, Kind: "available"})
	require.NoError(t, err)
	second, err := svc.Respond(ctx, owner, ResponseInput{RequestID: r.ID, Kind: "unavailable"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	responses := f.store.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, models.ResponseUnavailable, responses[0].Kind)

	_, err = svc.Respond(ctx, owner, ResponseInput{RequestID: r.ID, Kind: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = svc.Respond(ctx, owner, ResponseInput{RequestID: "missing", Kind: "generic"})
	assert.ErrorIs(t, err, ErrNotFound)
}
