package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store"
	"mediradar-api-server/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticUsers struct {
	n   int
	err error
}

func (u staticUsers) CountUsers(context.Context) (int, error) { return u.n, u.err }

var adminUser = &auth.User{ID: "admin-1", Email: "admin@example.com"}

func (f *fixture) admin(users UserCounter) *AdminService {
	return NewAdminService(f.store, users, f.notifier, f.recorder, zap.NewNop()).WithClock(f.clock.Now)
}

func seedPharmacy(t *testing.T, s store.PharmacyStore, owner, name string, status models.PharmacyStatus) *models.Pharmacy {
	t.Helper()
	p, err := s.EnsurePharmacy(context.Background(), &models.Pharmacy{OwnerID: owner, Name: name, Status: status})
	require.NoError(t, err)
	return p
}

func TestAdmin_UpdatePharmacyStatus_WritesAudit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := seedPharmacy(t, f.store, "owner-1", "Φαρμακείο Α", models.PharmacyPending)

	updated, err := f.admin(nil).UpdatePharmacyStatus(ctx, adminUser, p.ID, "Approved", "docs checked")
	require.NoError(t, err)
	assert.Equal(t, models.PharmacyApproved, updated.Status)

	entries, err := f.store.RecentAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.AuditPharmacyStatusUpdate, e.Action)
	assert.Equal(t, "pharmacy", e.TargetType)
	assert.Equal(t, p.ID, e.TargetID)
	assert.Equal(t, "admin-1", *e.ActorID)
	assert.Equal(t, "admin@example.com", *e.ActorEmail)
	assert.Equal(t, models.Meta{"name": "Φαρμακείο Α", "from": "pending", "to": "approved", "reason": "docs checked"}, e.Meta)
}

func TestAdmin_UpdatePharmacyStatus_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.admin(nil)
	p := seedPharmacy(t, f.store, "owner-1", "A", models.PharmacyPending)

	_, err := svc.UpdatePharmacyStatus(ctx, adminUser, p.ID, "closed", "")
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = svc.UpdatePharmacyStatus(ctx, adminUser, "", "approved", "")
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = svc.UpdatePharmacyStatus(ctx, adminUser, "missing", "approved", "")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, _ := f.store.RecentAudit(ctx, 10)
	assert.Empty(t, entries)
}

func TestAdmin_ListPharmacies_IgnoresUnknownStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seedPharmacy(t, f.store, "o1", "A", models.PharmacyPending)
	seedPharmacy(t, f.store, "o2", "B", models.PharmacyApproved)

	all, err := f.admin(nil).ListPharmacies(ctx, "bogus")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := f.admin(nil).ListPharmacies(ctx, "APPROVED")
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "B", approved[0].Name)
}

func TestAdmin_UpdateRequestStatus_Override(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.create(t)
	_, err := f.store.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusUnavailable, nil)
	require.NoError(t, err)

	updated, err := f.admin(nil).UpdateRequestStatus(ctx, adminUser, r.ID, "pending", "reopened")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)

	entries, _ := f.store.RecentAudit(ctx, 10)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditRequestStatusUpdate, entries[0].Action)
	assert.Equal(t, models.Meta{"from": "unavailable", "to": "pending", "note": "reopened"}, entries[0].Meta)
}

func TestAdmin_UpdateRequestStatus_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.admin(nil)
	r := f.create(t)

	_, err := svc.UpdateRequestStatus(ctx, adminUser, r.ID, "completed", "")
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = svc.UpdateRequestStatus(ctx, adminUser, "missing", "reserved", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingAudit struct {
	*memory.Store
}

func (failingAudit) AppendAudit(context.Context, *models.AuditEntry) error {
	return errors.New("audit table missing")
}

func TestAdmin_AuditFailureDoesNotFailUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.create(t)

	svc := NewAdminService(failingAudit{f.store}, nil, nil, nil, zap.NewNop())
	updated, err := svc.UpdateRequestStatus(ctx, adminUser, r.ID, "reserved", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReserved, updated.Status)
}

func TestAdmin_ListRequests_Filters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.admin(nil)
	for _, in := range []CreateRequestInput{
		{MedicineName: "Depon", Quantity: 1, City: "Athens"},
		{MedicineName: "Augmentin", Substance: "amoxicillin", Quantity: 1, City: "Thessaloniki"},
		{MedicineName: "Lexotanil", Quantity: 1, City: "athens", RxNumber: "RX-77"},
	} {
		_, err := f.requests.Create(ctx, in)
		require.NoError(t, err)
		f.clock.Set(f.clock.Now().Add(time.Minute))
	}

	items, err := svc.ListRequests(ctx, RequestQuery{City: "ATH"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Lexotanil", items[0].MedicineName)

	items, _ = svc.ListRequests(ctx, RequestQuery{Query: "amoxi"})
	require.Len(t, items, 1)
	assert.Equal(t, "Augmentin", items[0].MedicineName)

	items, _ = svc.ListRequests(ctx, RequestQuery{Query: "rx-7"})
	require.Len(t, items, 1)

	items, _ = svc.ListRequests(ctx, RequestQuery{Status: "reserved"})
	assert.Empty(t, items)

	items, _ = svc.ListRequests(ctx, RequestQuery{Limit: 1})
	assert.Len(t, items, 1)
}

func TestAdmin_Summary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.admin(staticUsers{n: 17})

	a := f.create(t)
	b := f.create(t)
	f.clock.Set(f.clock.Now().Add(24 * time.Hour))
	c := f.create(t)
	_, err := f.requests.Reserve(ctx, a.StatusToken)
	require.NoError(t, err)
	require.NoError(t, f.requests.Reply(ctx, ReplyInput{Token: b.StatusToken, PharmacyName: "P"}))
	_ = c

	p := seedPharmacy(t, f.store, "o1", "A", models.PharmacyPending)
	seedPharmacy(t, f.store, "o2", "B", models.PharmacySuspended)
	_, err = svc.UpdatePharmacyStatus(ctx, adminUser, p.ID, "approved", "")
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, adminUser)
	require.NoError(t, err)
	assert.Equal(t, SummaryMetrics{
		TotalRequests:       3,
		PendingRequests:     1,
		ActiveRequests:      2,
		Pharmacies:          2,
		PharmaciesApproved:  1,
		PharmaciesSuspended: 1,
		Users:               17,
	}, sum.Metrics)
	assert.Equal(t, map[string]int{"reserved": 1, "available": 1, "pending": 1}, sum.StatusBreakdown)
	assert.Equal(t, []DayBucket{
		{Date: "2024-05-10", Total: 2, Pending: 0, Resolved: 2},
		{Date: "2024-05-11", Total: 1, Pending: 1, Resolved: 0},
	}, sum.RequestsByDay)
	assert.Len(t, sum.PharmacySnapshot, 2)
	assert.Len(t, sum.AuditLog, 1)
	assert.Equal(t, Actor{ID: "admin-1", Email: "admin@example.com"}, sum.Actor)
	assert.Equal(t, f.clock.Now(), sum.GeneratedAt)
}

func TestAdmin_Summary_UserCountFailureReportsZero(t *testing.T) {
	f := newFixture()
	f.create(t)
	sum, err := f.admin(staticUsers{err: errors.New("supabase down")}).Summary(context.Background(), adminUser)
	require.NoError(t, err)
	assert.Zero(t, sum.Metrics.Users)
	assert.Equal(t, 1, sum.Metrics.TotalRequests)
}
