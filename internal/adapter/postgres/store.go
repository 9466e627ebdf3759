// Package postgres is the durable Store backed by PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foreignKeyViolation = "23503"

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- lakes ---

const lakeColumns = `id::text, slug, name, description, latitude, longitude, area_sq_km, max_depth_m, created_at, updated_at`

// UpsertLake inserts a lake or refreshes the descriptive fields of the lake
// with the same slug. The stored row, with its original id, is returned.
func (s *Store) UpsertLake(ctx context.Context, lake domain.Lake) (domain.Lake, error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO lakes (id, slug, name, description, latitude, longitude, area_sq_km, max_depth_m, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    area_sq_km = EXCLUDED.area_sq_km,
    max_depth_m = EXCLUDED.max_depth_m,
    updated_at = EXCLUDED.updated_at
RETURNING `+lakeColumns,
		lake.ID, lake.Slug, lake.Name, lake.Description, lake.Location.Latitude, lake.Location.Longitude,
		lake.AreaSquareKm, lake.MaxDepthMeters, lake.CreatedAt, lake.UpdatedAt)

	out, err := scanLake(row)
	if err != nil {
		return domain.Lake{}, fmt.Errorf("upsert lake %s: %w", lake.Slug, err)
	}
	return out, nil
}

func (s *Store) GetLakeByID(ctx context.Context, id string) (domain.Lake, error) {
	lake, err := scanLake(s.pool.QueryRow(ctx, `SELECT `+lakeColumns+` FROM lakes WHERE id = $1`, id))
	if err != nil {
		return domain.Lake{}, fmt.Errorf("lake %s: %w", id, notFound(err))
	}
	return lake, nil
}

func (s *Store) GetLakeBySlug(ctx context.Context, slug string) (domain.Lake, error) {
	lake, err := scanLake(s.pool.QueryRow(ctx, `SELECT `+lakeColumns+` FROM lakes WHERE slug = $1`, slug))
	if err != nil {
		return domain.Lake{}, fmt.Errorf("lake %s: %w", slug, notFound(err))
	}
	return lake, nil
}

func (s *Store) ListLakes(ctx context.Context) ([]domain.Lake, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+lakeColumns+` FROM lakes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list lakes: %w", err)
	}
	defer rows.Close()

	lakes := make([]domain.Lake, 0)
	for rows.Next() {
		lake, err := scanLake(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lake: %w", err)
		}
		lakes = append(lakes, lake)
	}
	return lakes, rows.Err()
}

func scanLake(row pgx.Row) (domain.Lake, error) {
	var l domain.Lake
	err := row.Scan(&l.ID, &l.Slug, &l.Name, &l.Description, &l.Location.Latitude, &l.Location.Longitude,
		&l.AreaSquareKm, &l.MaxDepthMeters, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// --- readings ---

const insertReadingSQL = `
INSERT INTO sensor_readings (id, lake_id, sensor_type, value, raw_value, unit, confidence, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const claimChannelSQL = `
INSERT INTO sensor_seeds (lake_id, sensor_type) VALUES ($1, $2)
ON CONFLICT DO NOTHING`

func (s *Store) GetLatestReadingsPerChannel(ctx context.Context, lakeID string) ([]domain.SensorReading, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT ON (sensor_type) id::text, lake_id::text, sensor_type, value, raw_value, unit, confidence, ts
FROM sensor_readings
WHERE lake_id = $1
ORDER BY sensor_type, ts DESC`, lakeID)
	if err != nil {
		return nil, fmt.Errorf("latest readings for %s: %w", lakeID, err)
	}
	defer rows.Close()

	byChannel := make(map[domain.SensorChannel]domain.SensorReading)
	for rows.Next() {
		var r domain.SensorReading
		if err := rows.Scan(&r.ID, &r.LakeID, &r.SensorType, &r.Value, &r.RawValue, &r.Unit, &r.Confidence, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		byChannel[r.SensorType] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.SensorReading, 0, len(byChannel))
	for _, ch := range domain.Channels {
		if r, ok := byChannel[ch]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// InsertReadings writes readings in one batch and marks their channels as
// populated so a later bootstrap does not seed over them.
func (s *Store) InsertReadings(ctx context.Context, readings []domain.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range readings {
		batch.Queue(claimChannelSQL, r.LakeID, r.SensorType)
		batch.Queue(insertReadingSQL, r.ID, r.LakeID, r.SensorType, r.Value, r.RawValue, r.Unit, r.Confidence, r.Timestamp)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range batch.Len() {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("insert readings: %w", mapWriteErr(err))
		}
	}
	return nil
}

// InsertReadingsIfAbsent claims each (lake, channel) in sensor_seeds and
// inserts the reading only when the claim is new. Concurrent callers race on
// the primary key, so exactly one of them writes each channel.
func (s *Store) InsertReadingsIfAbsent(ctx context.Context, lakeID string, readings []domain.SensorReading) (int, error) {
	inserted := 0
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, r := range readings {
			if r.LakeID != lakeID {
				continue
			}
			tag, err := tx.Exec(ctx, claimChannelSQL, r.LakeID, r.SensorType)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				continue
			}
			if _, err := tx.Exec(ctx, insertReadingSQL, r.ID, r.LakeID, r.SensorType, r.Value, r.RawValue, r.Unit, r.Confidence, r.Timestamp); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed readings for %s: %w", lakeID, mapWriteErr(err))
	}
	return inserted, nil
}

// --- alerts ---

const alertColumns = `a.id::text, a.lake_id::text, l.name, a.severity, a.status, a.title, a.description,
    a.cause, a.recommendation, a.triggered_by, a.created_at, a.acknowledged_at, a.resolved_at`

func (s *Store) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts a JOIN lakes l ON l.id = a.lake_id WHERE TRUE`
	args := []any{}
	if filter.LakeID != "" {
		args = append(args, filter.LakeID)
		query += " AND a.lake_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND a.status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY a.created_at DESC, a.id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *Store) GetAlert(ctx context.Context, id string) (domain.Alert, error) {
	a, err := scanAlert(s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts a JOIN lakes l ON l.id = a.lake_id WHERE a.id = $1`, id))
	if err != nil {
		return domain.Alert{}, fmt.Errorf("alert %s: %w", id, notFound(err))
	}
	return a, nil
}

// InsertAlert stores a new alert. Lifecycle changes go through UpdateAlert.
func (s *Store) InsertAlert(ctx context.Context, a domain.Alert) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO alerts (id, lake_id, severity, status, title, description, cause, recommendation, triggered_by,
                    created_at, acknowledged_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.LakeID, a.Severity, a.Status, a.Title, a.Description, a.Cause, a.Recommendation, a.TriggeredBy,
		a.CreatedAt, a.AcknowledgedAt, a.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", a.ID, mapWriteErr(err))
	}
	return nil
}

// UpdateAlert locks the alert row, applies fn and writes back the lifecycle
// fields in one transaction. A concurrent update of the same alert waits for
// the lock and then sees the committed status.
func (s *Store) UpdateAlert(ctx context.Context, id string, fn func(domain.Alert) (domain.Alert, error)) (domain.Alert, error) {
	var next domain.Alert
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanAlert(tx.QueryRow(ctx,
			`SELECT `+alertColumns+` FROM alerts a JOIN lakes l ON l.id = a.lake_id WHERE a.id = $1 FOR UPDATE OF a`, id))
		if err != nil {
			return fmt.Errorf("alert %s: %w", id, notFound(err))
		}
		if next, err = fn(cur); err != nil {
			return err
		}
		next.ID = cur.ID
		_, err = tx.Exec(ctx, `
UPDATE alerts
SET status = $2, acknowledged_at = $3, resolved_at = $4
WHERE id = $1`, next.ID, next.Status, next.AcknowledgedAt, next.ResolvedAt)
		if err != nil {
			return fmt.Errorf("update alert %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return domain.Alert{}, err
	}
	return next, nil
}

func scanAlert(row pgx.Row) (domain.Alert, error) {
	var a domain.Alert
	err := row.Scan(&a.ID, &a.LakeID, &a.LakeName, &a.Severity, &a.Status, &a.Title, &a.Description,
		&a.Cause, &a.Recommendation, &a.TriggeredBy, &a.CreatedAt, &a.AcknowledgedAt, &a.ResolvedAt)
	return a, err
}

// --- scores and predictions ---

func (s *Store) SaveHealthScore(ctx context.Context, hs domain.HealthScore) error {
	components, err := json.Marshal(hs.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO health_scores (id, lake_id, score, band, components, confidence, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		hs.ID, hs.LakeID, hs.Score, hs.Band, components, hs.Confidence, hs.Timestamp)
	if err != nil {
		return fmt.Errorf("save health score for %s: %w", hs.LakeID, mapWriteErr(err))
	}
	return nil
}

func (s *Store) LatestHealthScore(ctx context.Context, lakeID string) (domain.HealthScore, error) {
	var (
		hs         domain.HealthScore
		components []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id::text, lake_id::text, score, band, components, confidence, ts
FROM health_scores
WHERE lake_id = $1
ORDER BY ts DESC
LIMIT 1`, lakeID).Scan(&hs.ID, &hs.LakeID, &hs.Score, &hs.Band, &components, &hs.Confidence, &hs.Timestamp)
	if err != nil {
		return domain.HealthScore{}, fmt.Errorf("health score for lake %s: %w", lakeID, notFound(err))
	}
	if err := json.Unmarshal(components, &hs.Components); err != nil {
		return domain.HealthScore{}, fmt.Errorf("decode components: %w", err)
	}
	return hs, nil
}

func (s *Store) ListHealthScores(ctx context.Context, lakeID string, since time.Time) ([]domain.HealthScore, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id::text, lake_id::text, score, band, components, confidence, ts
FROM health_scores
WHERE lake_id = $1 AND ts >= $2
ORDER BY ts`, lakeID, since)
	if err != nil {
		return nil, fmt.Errorf("health scores for %s: %w", lakeID, err)
	}
	defer rows.Close()

	scores := make([]domain.HealthScore, 0)
	for rows.Next() {
		var (
			hs         domain.HealthScore
			components []byte
		)
		if err := rows.Scan(&hs.ID, &hs.LakeID, &hs.Score, &hs.Band, &components, &hs.Confidence, &hs.Timestamp); err != nil {
			return nil, fmt.Errorf("scan health score: %w", err)
		}
		if err := json.Unmarshal(components, &hs.Components); err != nil {
			return nil, fmt.Errorf("decode components: %w", err)
		}
		scores = append(scores, hs)
	}
	return scores, rows.Err()
}

func (s *Store) SavePredictions(ctx context.Context, predictions []domain.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range predictions {
		causes, err := json.Marshal(p.Causes)
		if err != nil {
			return fmt.Errorf("marshal causes: %w", err)
		}
		recs, err := json.Marshal(p.Recommendations)
		if err != nil {
			return fmt.Errorf("marshal recommendations: %w", err)
		}
		batch.Queue(`
INSERT INTO predictions (id, lake_id, time_window, predicted_score, current_score, score_delta, risk_level,
                         confidence, causes, recommendations, explanation, generated_at, valid_until)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			p.ID, p.LakeID, p.Window, p.PredictedScore, p.CurrentScore, p.ScoreDelta, p.RiskLevel,
			p.Confidence, causes, recs, p.Explanation, p.GeneratedAt, p.ValidUntil)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range predictions {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("save predictions: %w", mapWriteErr(err))
		}
	}
	return nil
}

// --- reports ---

func (s *Store) SaveReport(ctx context.Context, r domain.CitizenReport) error {
	var analysis []byte
	if r.ImageAnalysis != nil {
		var err error
		if analysis, err = json.Marshal(r.ImageAnalysis); err != nil {
			return fmt.Errorf("marshal image analysis: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO reports (id, lake_id, report_type, description, latitude, longitude, location_name, image_url,
                     image_analysis, status, submitted_at, processed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    location_name = EXCLUDED.location_name,
    image_analysis = EXCLUDED.image_analysis,
    processed_at = EXCLUDED.processed_at`,
		r.ID, r.LakeID, r.ReportType, r.Description, r.Location.Latitude, r.Location.Longitude, r.LocationName,
		r.ImageURL, analysis, r.Status, r.SubmittedAt, r.ProcessedAt)
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, mapWriteErr(err))
	}
	return nil
}

const reportColumns = `id::text, lake_id::text, report_type, description, latitude, longitude, location_name,
    image_url, image_analysis, status, submitted_at, processed_at`

// GetReport loads one report by id.
func (s *Store) GetReport(ctx context.Context, id string) (domain.CitizenReport, error) {
	r, err := scanReport(s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		return domain.CitizenReport{}, fmt.Errorf("report %s: %w", id, notFound(err))
	}
	return r, nil
}

func (s *Store) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.CitizenReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE TRUE`
	args := []any{}
	if filter.LakeID != "" {
		args = append(args, filter.LakeID)
		query += " AND lake_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY submitted_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.CitizenReport, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (domain.CitizenReport, error) {
	var (
		r        domain.CitizenReport
		analysis []byte
	)
	err := row.Scan(&r.ID, &r.LakeID, &r.ReportType, &r.Description, &r.Location.Latitude,
		&r.Location.Longitude, &r.LocationName, &r.ImageURL, &analysis, &r.Status, &r.SubmittedAt, &r.ProcessedAt)
	if err != nil {
		return r, err
	}
	if analysis != nil {
		r.ImageAnalysis = &domain.ImageAnalysis{}
		if err := json.Unmarshal(analysis, r.ImageAnalysis); err != nil {
			return domain.CitizenReport{}, fmt.Errorf("decode image analysis: %w", err)
		}
	}
	return r, nil
}

// notFound translates pgx.ErrNoRows into domain.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// mapWriteErr reports writes that reference a missing lake as ErrNotFound.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrNotFound)
	}
	return err
}
