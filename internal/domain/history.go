package domain

import "time"

// HistoryRange selects how far back a score history reaches.
type HistoryRange string

const (
	Range7d  HistoryRange = "7d"
	Range30d HistoryRange = "30d"
	Range90d HistoryRange = "90d"
)

// ParseHistoryRange accepts 7d, 30d or 90d. An empty value selects 7d.
func ParseHistoryRange(s string) (HistoryRange, error) {
	switch r := HistoryRange(s); r {
	case "":
		return Range7d, nil
	case Range7d, Range30d, Range90d:
		return r, nil
	default:
		return "", invalid("range", "must be one of 7d, 30d, 90d, got %q", s)
	}
}

// Days is the length of the range.
func (r HistoryRange) Days() int {
	switch r {
	case Range90d:
		return 90
	case Range30d:
		return 30
	default:
		return 7
	}
}

// Since returns the start of the range that ends at now.
func (r HistoryRange) Since(now time.Time) time.Time {
	return now.AddDate(0, 0, -r.Days())
}

// SampleScores thins a history longer than a week to every
// ceil(days/30)-th score, keeping the first. scores must be oldest first;
// the input is not modified.
func SampleScores(scores []HealthScore, r HistoryRange) []HealthScore {
	days := r.Days()
	step := (days + 29) / 30
	if days <= 7 || step <= 1 {
		return append([]HealthScore(nil), scores...)
	}
	out := make([]HealthScore, 0, len(scores)/step+1)
	for i := 0; i < len(scores); i += step {
		out = append(out, scores[i])
	}
	return out
}

// LakeSummary is a dashboard row: a lake plus its latest persisted score.
// The score fields stay nil until the lake has been scored once.
type LakeSummary struct {
	Lake
	CurrentScore *int        `json:"currentScore"`
	Band         *HealthBand `json:"band"`
	LastUpdated  *time.Time  `json:"lastUpdated"`
}

// NewLakeSummary builds the row. The band is derived from the score rather
// than copied, so a stale stored band is never shown.
func NewLakeSummary(l Lake, latest *HealthScore) LakeSummary {
	s := LakeSummary{Lake: l}
	if latest == nil {
		return s
	}
	score := latest.Score
	band := BandOf(score)
	ts := latest.Timestamp
	s.CurrentScore = &score
	s.Band = &band
	s.LastUpdated = &ts
	return s
}

// ReportFilter narrows ListReports. Zero fields match everything.
type ReportFilter struct {
	LakeID string
	Status ReportStatus
}

// Matches reports whether r passes the filter.
func (f ReportFilter) Matches(r CitizenReport) bool {
	if f.LakeID != "" && r.LakeID != f.LakeID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Validate rejects unknown statuses.
func (f ReportFilter) Validate() error {
	switch f.Status {
	case "", ReportPending, ReportAnalyzing, ReportVerified, ReportRejected:
		return nil
	}
	return invalid("status", "unknown report status %q", f.Status)
}
