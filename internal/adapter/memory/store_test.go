package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lakeID = "5a4f3c2e-8b1d-4e6f-9a70-1c2d3e4f5a01"

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	_, err := s.UpsertLake(context.Background(), domain.Lake{ID: lakeID, Slug: "pichola", Name: "Pichola Lake"})
	require.NoError(t, err)
	return s
}

func ts(m int) time.Time {
	return time.Date(2026, 3, 1, 6, m, 0, 0, time.UTC)
}

func TestUpsertLake_KeepsIDBySlug(t *testing.T) {
	s := seeded(t)

	updated, err := s.UpsertLake(context.Background(), domain.Lake{ID: "other", Slug: "pichola", Name: "Lake Pichola"})
	require.NoError(t, err)
	assert.Equal(t, lakeID, updated.ID)

	got, err := s.GetLakeBySlug(context.Background(), "pichola")
	require.NoError(t, err)
	assert.Equal(t, "Lake Pichola", got.Name)

	_, err = s.GetLakeByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetLatestReadingsPerChannel(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.InsertReadings(ctx, []domain.SensorReading{
		{ID: "1", LakeID: lakeID, SensorType: domain.Turbidity, Value: 50, Timestamp: ts(5)},
		{ID: "2", LakeID: lakeID, SensorType: domain.Turbidity, Value: 60, Timestamp: ts(10)},
		{ID: "3", LakeID: lakeID, SensorType: domain.DissolvedOxygen, Value: 70, Timestamp: ts(3)},
	}))

	got, err := s.GetLatestReadingsPerChannel(ctx, lakeID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "2", got[1].ID)

	none, err := s.GetLatestReadingsPerChannel(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertReadingsIfAbsent_OnlyMissingChannels(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.InsertReadings(ctx, []domain.SensorReading{
		{ID: "real", LakeID: lakeID, SensorType: domain.Turbidity, Value: 20, Timestamp: ts(1)},
	}))

	var defaults []domain.SensorReading
	for _, ch := range domain.Channels {
		defaults = append(defaults, domain.SensorReading{ID: "d-" + string(ch), LakeID: lakeID, SensorType: ch, Value: 80, Timestamp: ts(2)})
	}

	n, err := s.InsertReadingsIfAbsent(ctx, lakeID, defaults)
	require.NoError(t, err)
	assert.Equal(t, len(domain.Channels)-1, n)

	latest, err := s.GetLatestReadingsPerChannel(ctx, lakeID)
	require.NoError(t, err)
	for _, r := range latest {
		if r.SensorType == domain.Turbidity {
			assert.Equal(t, "real", r.ID)
		}
	}
}

func TestInsertReadingsIfAbsent_ConcurrentSeedersWriteOnce(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	counts := make([]int, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var batch []domain.SensorReading
			for _, ch := range domain.Channels {
				batch = append(batch, domain.SensorReading{LakeID: lakeID, SensorType: ch, Value: float64(70 + w), Timestamp: ts(0)})
			}
			n, err := s.InsertReadingsIfAbsent(ctx, lakeID, batch)
			assert.NoError(t, err)
			counts[w] = n
		}()
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, len(domain.Channels), total)
	assert.Len(t, s.readings[lakeID], len(domain.Channels))
}

func TestAlerts(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAlert(ctx, domain.Alert{ID: "a", LakeID: lakeID, Status: domain.StatusActive, CreatedAt: ts(1)}))
	require.NoError(t, s.InsertAlert(ctx, domain.Alert{ID: "b", LakeID: lakeID, Status: domain.StatusResolved, CreatedAt: ts(2)}))
	require.ErrorIs(t, s.InsertAlert(ctx, domain.Alert{ID: "c", LakeID: "nope"}), domain.ErrNotFound)

	all, err := s.ListAlerts(ctx, domain.AlertFilter{LakeID: lakeID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	active, err := s.ListAlerts(ctx, domain.AlertFilter{Status: domain.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)

	_, err = s.GetAlert(ctx, "zzz")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateAlert(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.InsertAlert(ctx, domain.Alert{ID: "a", LakeID: lakeID, Status: domain.StatusActive, CreatedAt: ts(1)}))
	require.Error(t, s.InsertAlert(ctx, domain.Alert{ID: "a", LakeID: lakeID, Status: domain.StatusResolved}))

	resolved, err := s.UpdateAlert(ctx, "a", func(cur domain.Alert) (domain.Alert, error) {
		return domain.Resolve(cur, ts(2))
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, resolved.Status)

	_, err = s.UpdateAlert(ctx, "a", func(cur domain.Alert) (domain.Alert, error) {
		return domain.Acknowledge(cur, ts(3))
	})
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	got, err := s.GetAlert(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.Nil(t, got.AcknowledgedAt)

	_, err = s.UpdateAlert(ctx, "zzz", func(cur domain.Alert) (domain.Alert, error) { return cur, nil })
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLatestHealthScore(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.LatestHealthScore(ctx, lakeID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveHealthScore(ctx, domain.HealthScore{ID: "new", LakeID: lakeID, Timestamp: ts(9)}))
	require.NoError(t, s.SaveHealthScore(ctx, domain.HealthScore{ID: "old", LakeID: lakeID, Timestamp: ts(1)}))

	hs, err := s.LatestHealthScore(ctx, lakeID)
	require.NoError(t, err)
	assert.Equal(t, "new", hs.ID)
}

func TestListHealthScores_SinceOldestFirst(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	for _, hs := range []domain.HealthScore{
		{ID: "late", LakeID: lakeID, Timestamp: ts(30)},
		{ID: "early", LakeID: lakeID, Timestamp: ts(1)},
		{ID: "mid", LakeID: lakeID, Timestamp: ts(10)},
	} {
		require.NoError(t, s.SaveHealthScore(ctx, hs))
	}

	got, err := s.ListHealthScores(ctx, lakeID, ts(10))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mid", got[0].ID)
	assert.Equal(t, "late", got[1].ID)

	none, err := s.ListHealthScores(ctx, "other", ts(0))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListReports(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, domain.CitizenReport{ID: "r1", LakeID: lakeID, Status: domain.ReportPending, SubmittedAt: ts(1)}))
	require.NoError(t, s.SaveReport(ctx, domain.CitizenReport{ID: "r2", LakeID: lakeID, Status: domain.ReportVerified, SubmittedAt: ts(2)}))

	all, err := s.ListReports(ctx, domain.ReportFilter{LakeID: lakeID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].ID, "newest first")

	pending, err := s.ListReports(ctx, domain.ReportFilter{Status: domain.ReportPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].ID)
}
