package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/lake-health-service/internal/domain"
)

// ReadingTransformer implements Transformer by decoding and validating
// reading messages.
type ReadingTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a ReadingTransformer.
func NewTransformer(logger *slog.Logger) *ReadingTransformer {
	return &ReadingTransformer{logger: logger}
}

func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.SensorReading, error) {
	r, err := domain.ParseReading(raw)
	if err != nil {
		return domain.SensorReading{}, err
	}
	t.logger.Debug("reading decoded",
		"lake_id", r.LakeID,
		"sensor_type", r.SensorType,
		"offset", raw.Offset,
	)
	return r, nil
}
