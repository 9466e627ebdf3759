package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/couchcryptid/lake-health-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize raw reading messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw message into a validated sensor reading.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.SensorReading, error)
}

// BatchLoader persists multiple readings.
type BatchLoader interface {
	LoadBatch(ctx context.Context, readings []domain.SensorReading) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline runs the reading ingestion loop: extract a batch from Kafka,
// decode each message, load the valid readings, then commit offsets.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Ready reports whether at least one batch of readings has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once a batch has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any readings yet")
	}
	return nil
}

// Run executes the ingestion loop until the context is cancelled. Extract and
// load failures are retried with exponential backoff (200ms doubling to 5s).
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingestion started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := initialBackoff
	for ctx.Err() == nil {
		if err := p.runOnce(ctx); err != nil {
			if retry.SleepWithContext(ctx, delay) {
				delay = retry.NextBackoff(delay, maxBackoff)
			}
			continue
		}
		delay = initialBackoff
	}

	p.logger.Info("ingestion stopping", "reason", ctx.Err())
	return nil
}

// runOnce extracts, transforms and loads a single batch.
func (p *Pipeline) runOnce(ctx context.Context) error {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("extract batch failed", "error", err)
		}
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	p.metrics.ReadingsConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	readings := make([]domain.SensorReading, 0, len(batch))
	accepted := make([]domain.RawEvent, 0, len(batch))
	for _, raw := range batch {
		r, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			// Poison messages are committed so they are not redelivered forever.
			p.logger.Warn("invalid reading, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		readings = append(readings, r)
		accepted = append(accepted, raw)
	}
	if len(readings) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, readings); err != nil {
		p.logger.Error("load readings failed", "error", err, "batch_size", len(readings))
		return err
	}
	p.metrics.ReadingsLoaded.Add(float64(len(readings)))

	for _, raw := range accepted {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
