package domain

import (
	"math"
	"regexp"
	"time"
)

var slugRe = regexp.MustCompile(`^[a-z0-9-]+$`)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that both values are finite and inside their ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return invalid("location.latitude", "must be within [-90, 90], got %v", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return invalid("location.longitude", "must be within [-180, 180], got %v", c.Longitude)
	}
	return nil
}

// Lake is a monitored water body. Identity fields never change after creation.
type Lake struct {
	ID             string      `json:"id"`
	Slug           string      `json:"slug"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Location       Coordinates `json:"location"`
	AreaSquareKm   float64     `json:"areaSquareKm"`
	MaxDepthMeters *float64    `json:"maxDepthMeters,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// ValidSlug reports whether s is a lowercase, dash-separated lake slug.
func ValidSlug(s string) bool {
	return slugRe.MatchString(s)
}
