package domain

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxDescriptionLength is the longest accepted report description, in characters.
const MaxDescriptionLength = 1000

// ReportType is the closed set of citizen observation categories.
type ReportType string

const (
	ReportPlasticDebris ReportType = "plastic_debris"
	ReportAlgaeBloom    ReportType = "algae_bloom"
	ReportFoamPollution ReportType = "foam_pollution"
	ReportDeadFish      ReportType = "dead_fish"
	ReportSewageSmell   ReportType = "sewage_smell"
	ReportOilSpill      ReportType = "oil_spill"
	ReportOther         ReportType = "other"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportPlasticDebris, ReportAlgaeBloom, ReportFoamPollution, ReportDeadFish,
		ReportSewageSmell, ReportOilSpill, ReportOther:
		return true
	}
	return false
}

// ReportStatus only ever moves forward: pending, analyzing, then verified or rejected.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportAnalyzing ReportStatus = "analyzing"
	ReportVerified  ReportStatus = "verified"
	ReportRejected  ReportStatus = "rejected"
)

func (s ReportStatus) stage() int {
	switch s {
	case ReportPending:
		return 0
	case ReportAnalyzing:
		return 1
	case ReportVerified, ReportRejected:
		return 2
	default:
		return -1
	}
}

// ImageAnalysis is filled in later by the image-analysis collaborator.
type ImageAnalysis struct {
	DetectedIssues []string `json:"detectedIssues"`
	Severity       float64  `json:"severity"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
}

// CitizenReport is a validated, untrusted-origin observation.
type CitizenReport struct {
	ID            string         `json:"id"`
	LakeID        string         `json:"lakeId"`
	ReportType    ReportType     `json:"reportType"`
	Description   *string        `json:"description,omitempty"`
	Location      Coordinates    `json:"location"`
	LocationName  string         `json:"locationName,omitempty"`
	ImageURL      string         `json:"imageUrl"`
	ImageAnalysis *ImageAnalysis `json:"imageAnalysis,omitempty"`
	Status        ReportStatus   `json:"status"`
	SubmittedAt   time.Time      `json:"submittedAt"`
	ProcessedAt   *time.Time     `json:"processedAt,omitempty"`
}

// RawReport is the submission shape before validation.
type RawReport struct {
	LakeID      string      `json:"lakeId"`
	ReportType  ReportType  `json:"reportType"`
	Description *string     `json:"description,omitempty"`
	Location    Coordinates `json:"location"`
	ImageURL    string      `json:"imageUrl"`
}

// LakeFinder resolves a lake by id. It returns ErrNotFound for unknown ids.
type LakeFinder interface {
	GetLakeByID(ctx context.Context, id string) (Lake, error)
}

// ValidateReport checks a raw submission and, on success, returns a pending
// report stamped with submittedAt = now. Image analysis and processedAt are
// left for later collaborators.
func ValidateReport(ctx context.Context, raw RawReport, lakes LakeFinder, now time.Time) (CitizenReport, error) {
	if !raw.ReportType.Valid() {
		return CitizenReport{}, invalid("reportType", "unknown report type %q", raw.ReportType)
	}
	if raw.Description != nil && utf8.RuneCountInString(*raw.Description) > MaxDescriptionLength {
		return CitizenReport{}, invalid("description", "must be at most %d characters", MaxDescriptionLength)
	}
	if err := raw.Location.Validate(); err != nil {
		return CitizenReport{}, err
	}
	if err := validateImageURL(raw.ImageURL); err != nil {
		return CitizenReport{}, err
	}
	if _, err := uuid.Parse(raw.LakeID); err != nil {
		return CitizenReport{}, invalid("lakeId", "must be a UUID")
	}

	if _, err := lakes.GetLakeByID(ctx, raw.LakeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return CitizenReport{}, &ValidationError{Field: "lakeId", Message: "lake does not exist", Err: ErrNotFound}
		}
		return CitizenReport{}, err
	}

	return CitizenReport{
		ID:          uuid.NewString(),
		LakeID:      raw.LakeID,
		ReportType:  raw.ReportType,
		Description: raw.Description,
		Location:    raw.Location,
		ImageURL:    raw.ImageURL,
		Status:      ReportPending,
		SubmittedAt: now,
	}, nil
}

func validateImageURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return invalid("imageUrl", "is required")
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("imageUrl", "must be an absolute http(s) URL")
	}
	return nil
}

// AdvanceReport moves a report strictly forward. Verified and rejected are
// terminal and stamp processedAt.
func AdvanceReport(r CitizenReport, next ReportStatus, now time.Time) (CitizenReport, error) {
	if next.stage() < 0 {
		return r, invalid("status", "unknown report status %q", next)
	}
	if next.stage() <= r.Status.stage() {
		return r, &TransitionError{Entity: "report", From: string(r.Status), To: string(next)}
	}
	r.Status = next
	if next.stage() == 2 {
		r.ProcessedAt = &now
	}
	return r, nil
}
