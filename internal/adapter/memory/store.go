// Package memory is an in-process Store used for local development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
)

// Store keeps everything in maps guarded by a single RWMutex. Writes that
// must be atomic per (lake, channel) take the write lock for their whole
// check-then-insert sequence.
type Store struct {
	mu          sync.RWMutex
	lakes       map[string]domain.Lake
	slugs       map[string]string
	readings    map[string][]domain.SensorReading
	scores      map[string][]domain.HealthScore
	predictions map[string][]domain.Prediction
	alerts      map[string]domain.Alert
	reports     map[string]domain.CitizenReport
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		lakes:       make(map[string]domain.Lake),
		slugs:       make(map[string]string),
		readings:    make(map[string][]domain.SensorReading),
		scores:      make(map[string][]domain.HealthScore),
		predictions: make(map[string][]domain.Prediction),
		alerts:      make(map[string]domain.Alert),
		reports:     make(map[string]domain.CitizenReport),
	}
}

// UpsertLake inserts a lake or updates the one with the same slug, keeping
// its original id and creation time.
func (s *Store) UpsertLake(_ context.Context, lake domain.Lake) (domain.Lake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.slugs[lake.Slug]; ok {
		existing := s.lakes[id]
		lake.ID = existing.ID
		lake.CreatedAt = existing.CreatedAt
	}
	s.lakes[lake.ID] = lake
	s.slugs[lake.Slug] = lake.ID
	return lake, nil
}

func (s *Store) GetLakeByID(_ context.Context, id string) (domain.Lake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lake, ok := s.lakes[id]
	if !ok {
		return domain.Lake{}, fmt.Errorf("lake %s: %w", id, domain.ErrNotFound)
	}
	return lake, nil
}

func (s *Store) GetLakeBySlug(_ context.Context, slug string) (domain.Lake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugs[slug]
	if !ok {
		return domain.Lake{}, fmt.Errorf("lake %s: %w", slug, domain.ErrNotFound)
	}
	return s.lakes[id], nil
}

// ListLakes returns lakes ordered by name.
func (s *Store) ListLakes(_ context.Context) ([]domain.Lake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lakes := make([]domain.Lake, 0, len(s.lakes))
	for _, l := range s.lakes {
		lakes = append(lakes, l)
	}
	slices.SortFunc(lakes, func(a, b domain.Lake) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return lakes, nil
}

func (s *Store) GetLatestReadingsPerChannel(_ context.Context, lakeID string) ([]domain.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	newest := make(map[domain.SensorChannel]domain.SensorReading)
	for _, r := range s.readings[lakeID] {
		cur, ok := newest[r.SensorType]
		if !ok || r.Timestamp.After(cur.Timestamp) {
			newest[r.SensorType] = r
		}
	}

	out := make([]domain.SensorReading, 0, len(newest))
	for _, ch := range domain.Channels {
		if r, ok := newest[ch]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) InsertReadings(_ context.Context, readings []domain.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range readings {
		s.readings[r.LakeID] = append(s.readings[r.LakeID], r)
	}
	return nil
}

func (s *Store) InsertReadingsIfAbsent(_ context.Context, lakeID string, readings []domain.SensorReading) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[domain.SensorChannel]bool)
	for _, r := range s.readings[lakeID] {
		present[r.SensorType] = true
	}

	inserted := 0
	for _, r := range readings {
		if r.LakeID != lakeID || present[r.SensorType] {
			continue
		}
		present[r.SensorType] = true
		s.readings[lakeID] = append(s.readings[lakeID], r)
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListAlerts(_ context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Alert, 0)
	for _, a := range s.alerts {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	// Map iteration order is random; give callers a stable base order.
	slices.SortFunc(out, func(a, b domain.Alert) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetAlert(_ context.Context, id string) (domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// InsertAlert stores a new alert. An id that already exists is rejected so a
// lifecycle change can only go through UpdateAlert.
func (s *Store) InsertAlert(_ context.Context, alert domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lakes[alert.LakeID]; !ok {
		return fmt.Errorf("alert %s lake %s: %w", alert.ID, alert.LakeID, domain.ErrNotFound)
	}
	if _, ok := s.alerts[alert.ID]; ok {
		return fmt.Errorf("alert %s already exists", alert.ID)
	}
	s.alerts[alert.ID] = alert
	return nil
}

// UpdateAlert applies fn to the stored alert and saves the result while
// holding the write lock, so concurrent updates of one alert are serialized.
func (s *Store) UpdateAlert(_ context.Context, id string, fn func(domain.Alert) (domain.Alert, error)) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	next, err := fn(cur)
	if err != nil {
		return domain.Alert{}, err
	}
	next.ID = cur.ID
	s.alerts[id] = next
	return next, nil
}

func (s *Store) SaveHealthScore(_ context.Context, score domain.HealthScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[score.LakeID] = append(s.scores[score.LakeID], score)
	return nil
}

func (s *Store) LatestHealthScore(_ context.Context, lakeID string) (domain.HealthScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := s.scores[lakeID]
	if len(scores) == 0 {
		return domain.HealthScore{}, fmt.Errorf("health score for lake %s: %w", lakeID, domain.ErrNotFound)
	}
	latest := scores[0]
	for _, hs := range scores[1:] {
		if !hs.Timestamp.Before(latest.Timestamp) {
			latest = hs
		}
	}
	return latest, nil
}

func (s *Store) ListHealthScores(_ context.Context, lakeID string, since time.Time) ([]domain.HealthScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HealthScore, 0)
	for _, hs := range s.scores[lakeID] {
		if !hs.Timestamp.Before(since) {
			out = append(out, hs)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.HealthScore) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *Store) SavePredictions(_ context.Context, predictions []domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range predictions {
		s.predictions[p.LakeID] = append(s.predictions[p.LakeID], p)
	}
	return nil
}

func (s *Store) SaveReport(_ context.Context, report domain.CitizenReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.ID] = report
	return nil
}

func (s *Store) ListReports(_ context.Context, filter domain.ReportFilter) ([]domain.CitizenReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CitizenReport, 0)
	for _, r := range s.reports {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.CitizenReport) int {
		return cmp.Or(b.SubmittedAt.Compare(a.SubmittedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}
