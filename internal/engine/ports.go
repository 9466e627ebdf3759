package engine

import (
	"context"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
)

// Store is the persistence collaborator. Lookups of unknown entities return
// an error matching domain.ErrNotFound.
type Store interface {
	GetLakeByID(ctx context.Context, id string) (domain.Lake, error)
	GetLakeBySlug(ctx context.Context, slug string) (domain.Lake, error)
	ListLakes(ctx context.Context) ([]domain.Lake, error)

	// GetLatestReadingsPerChannel returns at most one reading per channel,
	// the newest of each. A lake with no readings yields an empty slice.
	GetLatestReadingsPerChannel(ctx context.Context, lakeID string) ([]domain.SensorReading, error)
	InsertReadings(ctx context.Context, readings []domain.SensorReading) error
	// InsertReadingsIfAbsent inserts each reading only when its lake has no
	// reading for that channel yet. The check and insert are atomic per
	// (lakeId, channel); it returns how many readings were written.
	InsertReadingsIfAbsent(ctx context.Context, lakeID string, readings []domain.SensorReading) (int, error)

	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
	GetAlert(ctx context.Context, id string) (domain.Alert, error)
	InsertAlert(ctx context.Context, alert domain.Alert) error
	// UpdateAlert applies fn to the stored alert and persists its result
	// atomically: concurrent updates of one alert observe each other's
	// writes. An error from fn is returned unchanged and nothing is written.
	UpdateAlert(ctx context.Context, id string, fn func(domain.Alert) (domain.Alert, error)) (domain.Alert, error)

	SaveHealthScore(ctx context.Context, score domain.HealthScore) error
	LatestHealthScore(ctx context.Context, lakeID string) (domain.HealthScore, error)
	// ListHealthScores returns the lake's scores stamped at or after since,
	// oldest first.
	ListHealthScores(ctx context.Context, lakeID string, since time.Time) ([]domain.HealthScore, error)
	SavePredictions(ctx context.Context, predictions []domain.Prediction) error
	SaveReport(ctx context.Context, report domain.CitizenReport) error
	// ListReports returns matching reports, newest submission first.
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.CitizenReport, error)

	Ping(ctx context.Context) error
}

// ScoreCache holds the latest HealthScore per lake for a short time.
type ScoreCache interface {
	Get(ctx context.Context, lakeID string) (domain.HealthScore, bool, error)
	Set(ctx context.Context, score domain.HealthScore, ttl time.Duration) error
	Invalidate(ctx context.Context, lakeIDs ...string) error
}

// Publisher emits serialized domain events.
type Publisher interface {
	Publish(ctx context.Context, events []domain.OutputEvent) error
}
