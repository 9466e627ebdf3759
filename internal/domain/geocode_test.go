package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichReportLocation_NilGeocoder(t *testing.T) {
	report := CitizenReport{ID: "rep-1", Location: Coordinates{Latitude: 24.57, Longitude: 73.68}}

	result := EnrichReportLocation(context.Background(), report, nil, discardLogger())

	assert.Empty(t, result.LocationName)
}

func TestEnrichReportLocation_PlaceName(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{
		FormattedAddress: "Lake Pichola, Udaipur, Rajasthan, India",
		PlaceName:        "Lake Pichola",
		Confidence:       0.9,
	}}
	report := CitizenReport{ID: "rep-1", Location: Coordinates{Latitude: 24.572, Longitude: 73.679}}

	result := EnrichReportLocation(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "Lake Pichola", result.LocationName)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichReportLocation_FallsBackToAddress(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{FormattedAddress: "Udaipur, Rajasthan, India"}}
	report := CitizenReport{ID: "rep-2", Location: Coordinates{Latitude: 24.58, Longitude: 73.71}}

	result := EnrichReportLocation(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "Udaipur, Rajasthan, India", result.LocationName)
}

func TestEnrichReportLocation_Error_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	report := CitizenReport{ID: "rep-3", Location: Coordinates{Latitude: 24.58, Longitude: 73.71}}

	result := EnrichReportLocation(context.Background(), report, geo, discardLogger())

	assert.Equal(t, report, result)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichReportLocation_AlreadyNamed(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{PlaceName: "Elsewhere"}}
	report := CitizenReport{ID: "rep-4", LocationName: "Gangaur Ghat"}

	result := EnrichReportLocation(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "Gangaur Ghat", result.LocationName)
	assert.Equal(t, 0, geo.calls)
}
