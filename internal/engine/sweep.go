package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
)

// SweepResult summarizes one pass over all lakes.
type SweepResult struct {
	Lakes        int
	Failed       int
	AlertsRaised int
}

// Sweep recomputes every lake's score and forecast, raises alerts that are
// not already open and publishes the resulting events. A failing lake is
// logged and skipped; only a failure to list lakes aborts the sweep.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	start := e.clock.Now()
	defer func() {
		e.metrics.SweepDuration.Observe(e.clock.Since(start).Seconds())
	}()

	lakes, err := e.store.ListLakes(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list lakes: %w", err)
	}

	var res SweepResult
	for _, lake := range lakes {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Lakes++
		raised, err := e.sweepLake(ctx, lake)
		if err != nil {
			res.Failed++
			e.metrics.SweepLakeFailures.Inc()
			e.logger.Error("sweep lake failed", "lake_id", lake.ID, "error", err)
			continue
		}
		res.AlertsRaised += raised
	}

	e.logger.Info("sweep complete",
		"lakes", res.Lakes,
		"failed", res.Failed,
		"alerts_raised", res.AlertsRaised,
		"duration", e.clock.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (e *Engine) sweepLake(ctx context.Context, lake domain.Lake) (int, error) {
	prev, prevErr := e.store.LatestHealthScore(ctx, lake.ID)
	if prevErr != nil && !errors.Is(prevErr, domain.ErrNotFound) {
		return 0, fmt.Errorf("load previous score: %w", prevErr)
	}

	hs, err := e.refreshScore(ctx, lake.ID)
	if err != nil {
		return 0, err
	}
	if prevErr == nil && prev.Band != hs.Band {
		e.logger.Info("health band changed", "lake_id", lake.ID, "from", prev.Band, "to", hs.Band, "score", hs.Score)
	}
	preds, err := e.predict(ctx, hs)
	if err != nil {
		return 0, err
	}

	open, err := e.store.ListAlerts(ctx, domain.AlertFilter{LakeID: lake.ID})
	if err != nil {
		return 0, fmt.Errorf("list alerts: %w", err)
	}

	now := e.clock.Now()
	var events []domain.OutputEvent
	raised := 0
	for _, a := range domain.DeriveAlerts(lake, hs, preds[:], now) {
		if domain.DuplicateOf(a, open) {
			continue
		}
		if err := e.store.InsertAlert(ctx, a); err != nil {
			return raised, fmt.Errorf("save alert: %w", err)
		}
		open = append(open, a)
		raised++
		e.metrics.AlertsRaised.WithLabelValues(string(a.Severity)).Inc()
		e.logger.Info("alert raised", "alert_id", a.ID, "lake_id", lake.ID, "severity", a.Severity, "triggered_by", a.TriggeredBy)
		ev, err := domain.SerializeAlert(domain.EventAlertRaised, a, now)
		events = e.appendEvent(events, ev, err, "alert_id", a.ID)
	}

	ev, err := domain.SerializeHealthScore(hs)
	events = e.appendEvent(events, ev, err, "score_id", hs.ID)
	for _, p := range preds {
		ev, err := domain.SerializePrediction(p)
		events = e.appendEvent(events, ev, err, "prediction_id", p.ID)
	}
	e.publish(ctx, events...)
	return raised, nil
}

// appendEvent adds a serialized event, or logs and skips one that failed to
// serialize so the rest of the batch is still published.
func (e *Engine) appendEvent(events []domain.OutputEvent, ev domain.OutputEvent, err error, idKey, id string) []domain.OutputEvent {
	if err != nil {
		e.metrics.EventSerializeErrors.Inc()
		e.logger.Warn("serialize event failed", idKey, id, "error", err)
		return events
	}
	return append(events, ev)
}
