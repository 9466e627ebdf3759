package domain

import (
	"slices"
	"time"
)

// AlertSeverity is fixed when an alert is created.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Valid reports whether s is a known severity.
func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// rank orders severities for triage: critical first. Unknown severities sort last.
func (s AlertSeverity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// AlertStatus follows the one-way lifecycle active -> acknowledged -> resolved.
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return true
	}
	return false
}

// AlertAction is a requested lifecycle change.
type AlertAction string

const (
	ActionAcknowledge AlertAction = "acknowledge"
	ActionResolve     AlertAction = "resolve"
)

// Alert is a discrete event that merits human attention.
type Alert struct {
	ID             string        `json:"id"`
	LakeID         string        `json:"lakeId"`
	LakeName       string        `json:"lakeName,omitempty"`
	Severity       AlertSeverity `json:"severity"`
	Status         AlertStatus   `json:"status"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Cause          string        `json:"cause,omitempty"`
	Recommendation string        `json:"recommendation,omitempty"`
	TriggeredBy    string        `json:"triggeredBy"`
	CreatedAt      time.Time     `json:"createdAt"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}

// Open reports whether the alert still needs attention.
func (a Alert) Open() bool {
	return a.Status != StatusResolved
}

// AlertFilter narrows ListAlerts. Zero fields match everything.
type AlertFilter struct {
	LakeID string
	Status AlertStatus
}

// Matches reports whether a passes the filter.
func (f AlertFilter) Matches(a Alert) bool {
	if f.LakeID != "" && a.LakeID != f.LakeID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// RankAlerts returns a new slice ordered by severity (critical, warning, info)
// and then by createdAt, newest first. The sort is stable, so alerts that tie
// on both keys keep their input order. The input is not modified.
func RankAlerts(alerts []Alert) []Alert {
	ranked := slices.Clone(alerts)
	slices.SortStableFunc(ranked, func(a, b Alert) int {
		if d := a.Severity.rank() - b.Severity.rank(); d != 0 {
			return d
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return ranked
}

// Acknowledge moves an active alert to acknowledged and stamps acknowledgedAt.
func Acknowledge(a Alert, now time.Time) (Alert, error) {
	if a.Status != StatusActive {
		return a, &TransitionError{Entity: "alert", From: string(a.Status), To: string(StatusAcknowledged)}
	}
	a.Status = StatusAcknowledged
	a.AcknowledgedAt = &now
	return a, nil
}

// Resolve moves an active or acknowledged alert to resolved and stamps
// resolvedAt. Resolving an already-resolved alert is an error.
func Resolve(a Alert, now time.Time) (Alert, error) {
	if a.Status != StatusActive && a.Status != StatusAcknowledged {
		return a, &TransitionError{Entity: "alert", From: string(a.Status), To: string(StatusResolved)}
	}
	a.Status = StatusResolved
	a.ResolvedAt = &now
	return a, nil
}

// TransitionAlert applies action to a.
func TransitionAlert(a Alert, action AlertAction, now time.Time) (Alert, error) {
	switch action {
	case ActionAcknowledge:
		return Acknowledge(a, now)
	case ActionResolve:
		return Resolve(a, now)
	default:
		return a, invalid("action", "unknown alert action %q", action)
	}
}
