package domain

import (
	"context"
	"log/slog"
)

// EnrichReportLocation fills LocationName from the report's coordinates.
// A nil geocoder or a failed lookup leaves the report unchanged (graceful
// degradation); geocoding never blocks intake.
func EnrichReportLocation(ctx context.Context, report CitizenReport, geocoder Geocoder, logger *slog.Logger) CitizenReport {
	if geocoder == nil || report.LocationName != "" {
		return report
	}

	result, err := geocoder.ReverseGeocode(ctx, report.Location.Latitude, report.Location.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"report_id", report.ID,
			"lat", report.Location.Latitude,
			"lon", report.Location.Longitude,
			"error", err,
		)
		return report
	}

	switch {
	case result.PlaceName != "":
		report.LocationName = result.PlaceName
	case result.FormattedAddress != "":
		report.LocationName = result.FormattedAddress
	}
	return report
}
