package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/couchcryptid/lake-health-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Options carries the optional collaborators. Zero values disable caching,
// event publishing and geocoding and select the real clock and a randomly
// seeded heuristic forecast.
type Options struct {
	Cache     ScoreCache
	CacheTTL  time.Duration
	Publisher Publisher
	Geocoder  domain.Geocoder
	Clock     clockwork.Clock
	Entropy   domain.Entropy
	Deltas    domain.DeltaSource
}

// Engine runs the scoring, prediction, alerting and intake operations
// against the store.
type Engine struct {
	store     Store
	cache     ScoreCache
	cacheTTL  time.Duration
	publisher Publisher
	geocoder  domain.Geocoder
	clock     clockwork.Clock
	entropy   domain.Entropy
	deltas    domain.DeltaSource
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates an Engine.
func New(store Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Engine {
	e := &Engine{
		store:     store,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		publisher: opts.Publisher,
		geocoder:  opts.Geocoder,
		clock:     opts.Clock,
		entropy:   opts.Entropy,
		deltas:    opts.Deltas,
		logger:    logger,
		metrics:   metrics,
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.entropy == nil {
		e.entropy = domain.GlobalEntropy{}
	}
	if e.deltas == nil {
		e.deltas = domain.RandomDelta{Entropy: e.entropy}
	}
	if e.cacheTTL <= 0 {
		e.cacheTTL = 5 * time.Minute
	}
	return e
}

// CheckReadiness reports whether the store is reachable.
func (e *Engine) CheckReadiness(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return nil
}

// ComputeHealthScore scores caller-supplied components without persisting.
// lakeID is optional and only labels the result.
func (e *Engine) ComputeHealthScore(lakeID string, c domain.ScoreComponents, confidence float64) (domain.HealthScore, error) {
	hs, err := domain.NewHealthScore(uuid.NewString(), lakeID, c, confidence, e.clock.Now())
	if err != nil {
		return domain.HealthScore{}, err
	}
	e.metrics.ScoresComputed.WithLabelValues(string(hs.Band)).Inc()
	return hs, nil
}

// GeneratePredictions forecasts a caller-supplied score without persisting.
func (e *Engine) GeneratePredictions(lakeID string, currentScore int) ([3]domain.Prediction, error) {
	preds, err := domain.GeneratePredictions(lakeID, currentScore, e.deltas, e.clock.Now())
	if err != nil {
		return preds, err
	}
	for _, p := range preds {
		e.metrics.PredictionsIssued.WithLabelValues(string(p.RiskLevel)).Inc()
	}
	return preds, nil
}

// ListLakes returns every monitored lake with its latest persisted score.
// Listing never computes or seeds anything; unscored lakes carry nil score
// fields.
func (e *Engine) ListLakes(ctx context.Context) ([]domain.LakeSummary, error) {
	lakes, err := e.store.ListLakes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lakes: %w", err)
	}
	out := make([]domain.LakeSummary, 0, len(lakes))
	for _, l := range lakes {
		hs, err := e.store.LatestHealthScore(ctx, l.ID)
		switch {
		case err == nil:
			out = append(out, domain.NewLakeSummary(l, &hs))
		case errors.Is(err, domain.ErrNotFound):
			out = append(out, domain.NewLakeSummary(l, nil))
		default:
			return nil, fmt.Errorf("latest score for %s: %w", l.ID, err)
		}
	}
	return out, nil
}

// ScoreHistory returns the lake's persisted scores over r, oldest first,
// thinned for ranges longer than a week.
func (e *Engine) ScoreHistory(ctx context.Context, lakeID string, r domain.HistoryRange) ([]domain.HealthScore, error) {
	scores, err := e.store.ListHealthScores(ctx, lakeID, r.Since(e.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("list health scores: %w", err)
	}
	return domain.SampleScores(scores, r), nil
}

// ResolveLake looks a lake up by id, or by slug when ref is not a UUID.
func (e *Engine) ResolveLake(ctx context.Context, ref string) (domain.Lake, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return e.store.GetLakeByID(ctx, ref)
	}
	if domain.ValidSlug(ref) {
		return e.store.GetLakeBySlug(ctx, ref)
	}
	return domain.Lake{}, fmt.Errorf("lake %q: %w", ref, domain.ErrNotFound)
}

// LatestReadings returns the newest reading of every channel for a lake,
// newest first. Channels that have never reported are seeded with
// synthesized defaults first.
func (e *Engine) LatestReadings(ctx context.Context, lakeID string) ([]domain.SensorReading, error) {
	latest, err := e.latest(ctx, lakeID)
	if err != nil && !errors.Is(err, domain.ErrNoData) {
		return nil, err
	}
	if len(latest) == len(domain.Channels) {
		return latest, nil
	}

	defaults := domain.SynthesizeReadings(lakeID, e.entropy, e.clock.Now())
	inserted, err := e.store.InsertReadingsIfAbsent(ctx, lakeID, defaults)
	if err != nil {
		return nil, fmt.Errorf("seed default readings: %w", err)
	}
	if inserted > 0 {
		e.metrics.BootstrapSeeds.Inc()
		e.logger.Info("seeded default readings", "lake_id", lakeID, "channels", inserted)
	}

	return e.latest(ctx, lakeID)
}

func (e *Engine) latest(ctx context.Context, lakeID string) ([]domain.SensorReading, error) {
	readings, err := e.store.GetLatestReadingsPerChannel(ctx, lakeID)
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	return domain.LatestPerChannel(readings)
}

// CurrentScore returns the lake's current HealthScore, served from the cache
// when possible and otherwise recomputed from the latest readings.
func (e *Engine) CurrentScore(ctx context.Context, lakeID string) (domain.HealthScore, error) {
	if e.cache != nil {
		hs, ok, err := e.cache.Get(ctx, lakeID)
		switch {
		case err != nil:
			e.metrics.ScoreCache.WithLabelValues("error").Inc()
			e.logger.Warn("score cache read failed", "lake_id", lakeID, "error", err)
		case ok && hs.Consistent():
			e.metrics.ScoreCache.WithLabelValues("hit").Inc()
			return hs, nil
		case ok:
			e.logger.Warn("discarding inconsistent cached score", "lake_id", lakeID, "score", hs.Score, "band", hs.Band)
			e.metrics.ScoreCache.WithLabelValues("miss").Inc()
		default:
			e.metrics.ScoreCache.WithLabelValues("miss").Inc()
		}
	}
	return e.refreshScore(ctx, lakeID)
}

// refreshScore computes, persists and caches a new score for the lake.
func (e *Engine) refreshScore(ctx context.Context, lakeID string) (domain.HealthScore, error) {
	readings, err := e.LatestReadings(ctx, lakeID)
	if err != nil {
		return domain.HealthScore{}, err
	}
	components, confidence, err := domain.ComponentsFromReadings(readings)
	if err != nil {
		return domain.HealthScore{}, err
	}
	hs, err := domain.NewHealthScore(uuid.NewString(), lakeID, components, confidence, e.clock.Now())
	if err != nil {
		return domain.HealthScore{}, err
	}
	e.metrics.ScoresComputed.WithLabelValues(string(hs.Band)).Inc()

	if err := e.store.SaveHealthScore(ctx, hs); err != nil {
		return domain.HealthScore{}, fmt.Errorf("save health score: %w", err)
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, hs, e.cacheTTL); err != nil {
			e.logger.Warn("score cache write failed", "lake_id", lakeID, "error", err)
		}
	}
	return hs, nil
}

// Predictions forecasts the lake's current score and persists the result.
func (e *Engine) Predictions(ctx context.Context, lakeID string) ([3]domain.Prediction, error) {
	hs, err := e.CurrentScore(ctx, lakeID)
	if err != nil {
		return [3]domain.Prediction{}, err
	}
	return e.predict(ctx, hs)
}

func (e *Engine) predict(ctx context.Context, hs domain.HealthScore) ([3]domain.Prediction, error) {
	preds, err := e.GeneratePredictions(hs.LakeID, hs.Score)
	if err != nil {
		return preds, err
	}
	if err := e.store.SavePredictions(ctx, preds[:]); err != nil {
		return preds, fmt.Errorf("save predictions: %w", err)
	}
	return preds, nil
}

// Alerts returns the alerts matching filter in triage order.
func (e *Engine) Alerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	alerts, err := e.store.ListAlerts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return domain.RankAlerts(alerts), nil
}

// TransitionAlert applies a lifecycle action to a stored alert. The store
// serializes the read and write, so of two racing resolves only one succeeds.
func (e *Engine) TransitionAlert(ctx context.Context, id string, action domain.AlertAction) (domain.Alert, error) {
	now := e.clock.Now()
	next, err := e.store.UpdateAlert(ctx, id, func(cur domain.Alert) (domain.Alert, error) {
		return domain.TransitionAlert(cur, action, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) || errors.Is(err, domain.ErrValidation) {
			e.metrics.AlertTransitions.WithLabelValues(string(action), "rejected").Inc()
		}
		return domain.Alert{}, err
	}
	e.metrics.AlertTransitions.WithLabelValues(string(action), "ok").Inc()
	e.logger.Info("alert transitioned", "alert_id", id, "lake_id", next.LakeID, "status", next.Status)

	ev, err := domain.SerializeAlert(domain.EventAlertTransition, next, now)
	e.publish(ctx, e.appendEvent(nil, ev, err, "alert_id", id)...)
	return next, nil
}

// SubmitReport validates, enriches and stores a citizen report.
func (e *Engine) SubmitReport(ctx context.Context, raw domain.RawReport) (domain.CitizenReport, error) {
	report, err := domain.ValidateReport(ctx, raw, e.store, e.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			e.metrics.ReportsSubmitted.WithLabelValues("rejected").Inc()
		}
		return domain.CitizenReport{}, err
	}

	report = domain.EnrichReportLocation(ctx, report, e.geocoder, e.logger)

	if err := e.store.SaveReport(ctx, report); err != nil {
		return domain.CitizenReport{}, fmt.Errorf("save report: %w", err)
	}
	e.metrics.ReportsSubmitted.WithLabelValues("accepted").Inc()
	e.logger.Info("report submitted", "report_id", report.ID, "lake_id", report.LakeID, "type", report.ReportType)
	return report, nil
}

// Reports returns the citizen reports matching filter, newest first.
func (e *Engine) Reports(ctx context.Context, filter domain.ReportFilter) ([]domain.CitizenReport, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	reports, err := e.store.ListReports(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// LoadBatch stores ingested readings and drops the cached scores of the
// lakes they belong to. It implements pipeline.BatchLoader.
func (e *Engine) LoadBatch(ctx context.Context, readings []domain.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}
	if err := e.store.InsertReadings(ctx, readings); err != nil {
		return fmt.Errorf("insert readings: %w", err)
	}
	if e.cache == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var lakeIDs []string
	for _, r := range readings {
		if _, ok := seen[r.LakeID]; !ok {
			seen[r.LakeID] = struct{}{}
			lakeIDs = append(lakeIDs, r.LakeID)
		}
	}
	if err := e.cache.Invalidate(ctx, lakeIDs...); err != nil {
		e.logger.Warn("score cache invalidation failed", "lakes", len(lakeIDs), "error", err)
	}
	return nil
}

// publish is best effort: a failed publish is logged and never fails the
// operation that produced the events.
func (e *Engine) publish(ctx context.Context, events ...domain.OutputEvent) {
	if e.publisher == nil || len(events) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, events); err != nil {
		e.logger.Warn("publish events failed", "count", len(events), "error", err)
		return
	}
	e.metrics.EventsPublished.Add(float64(len(events)))
}
