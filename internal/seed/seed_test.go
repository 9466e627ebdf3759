package seed_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/adapter/memory"
	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/couchcryptid/lake-health-service/internal/seed"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.March, 1, 6, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedEntropy struct{}

func (fixedEntropy) IntN(int) int     { return 5 }
func (fixedEntropy) Float64() float64 { return 0.5 }

// --- mocks ---

type failingWriter struct{}

func (failingWriter) UpsertLake(context.Context, domain.Lake) (domain.Lake, error) {
	return domain.Lake{}, errors.New("connection refused")
}

func (failingWriter) InsertReadingsIfAbsent(context.Context, string, []domain.SensorReading) (int, error) {
	return 0, nil
}

func TestReferenceLakes(t *testing.T) {
	lakes := seed.ReferenceLakes(now)
	require.Len(t, lakes, 4)

	slugs := make(map[string]bool)
	for _, l := range lakes {
		assert.True(t, domain.ValidSlug(l.Slug), l.Slug)
		require.NoError(t, l.Location.Validate())
		_, err := uuid.Parse(l.ID)
		require.NoError(t, err)
		assert.Equal(t, seed.LakeID(l.Slug), l.ID)
		assert.Equal(t, now, l.CreatedAt)
		slugs[l.Slug] = true
	}
	assert.Len(t, slugs, 4)
}

func TestLakeID_Deterministic(t *testing.T) {
	assert.Equal(t, seed.LakeID("pichola"), seed.LakeID("pichola"))
	assert.NotEqual(t, seed.LakeID("pichola"), seed.LakeID("badi"))
}

func TestRun_Idempotent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	res, err := seed.Run(ctx, store, fixedEntropy{}, now, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Lakes: 4, Readings: 24}, res)

	res, err = seed.Run(ctx, store, fixedEntropy{}, now.Add(time.Hour), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Lakes: 4, Readings: 0}, res, "second run writes no readings")

	lake, err := store.GetLakeBySlug(ctx, "pichola")
	require.NoError(t, err)
	readings, err := store.GetLatestReadingsPerChannel(ctx, lake.ID)
	require.NoError(t, err)
	require.Len(t, readings, len(domain.Channels))
	for _, r := range readings {
		assert.InDelta(t, 75, r.Value, 0)
		assert.InDelta(t, 0.875, r.Confidence, 1e-9)
		assert.Equal(t, now, r.Timestamp)
	}
}

func TestRun_UpsertError(t *testing.T) {
	res, err := seed.Run(context.Background(), failingWriter{}, fixedEntropy{}, now, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert pichola")
	assert.Zero(t, res.Lakes)
}
