package database

import (
	"context"
	"testing"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedDemoPharmacy(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, SeedDemoPharmacy(ctx, s, "demo-owner", zap.NewNop()))
	require.NoError(t, SeedDemoPharmacy(ctx, s, "demo-owner", zap.NewNop()))

	p, err := s.GetPharmacyByOwner(ctx, "demo-owner")
	require.NoError(t, err)
	assert.Equal(t, models.PharmacyApproved, p.Status)
	assert.True(t, p.Hours.Days[1].Open)
	assert.False(t, p.Hours.Days[0].Open)

	n, err := s.CountPharmacies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeedDemoPharmacy_NoOwner(t *testing.T) {
	s := memory.New()
	require.NoError(t, SeedDemoPharmacy(context.Background(), s, "", zap.NewNop()))
	n, _ := s.CountPharmacies(context.Background())
	assert.Zero(t, n)
}
