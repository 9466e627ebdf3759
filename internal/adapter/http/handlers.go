package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleListLakes(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	lakes, err := s.svc.ListLakes(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lakes, "meta": gin.H{"count": len(lakes)}})
}

func (s *Server) handleGetLake(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	lake, err := s.svc.ResolveLake(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lake})
}

// sensorView decorates a reading with its channel's display metadata.
type sensorView struct {
	domain.SensorReading
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (s *Server) handleLakeSensors(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	lake, err := s.svc.ResolveLake(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	readings, err := s.svc.LatestReadings(ctx, lake.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	views := make([]sensorView, 0, len(readings))
	for _, r := range readings {
		info := r.SensorType.Info()
		views = append(views, sensorView{SensorReading: r, Label: info.Label, Description: info.Description})
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) handleLatestScore(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	lake, err := s.svc.ResolveLake(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	hs, err := s.svc.CurrentScore(ctx, lake.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hs})
}

func (s *Server) handleScoreHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	r, err := domain.ParseHistoryRange(c.Query("range"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	lake, err := s.svc.ResolveLake(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	scores, err := s.svc.ScoreHistory(ctx, lake.ID, r)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": scores, "meta": gin.H{"count": len(scores), "range": r}})
}

func (s *Server) handleLakePredictions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	lake, err := s.svc.ResolveLake(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	preds, err := s.svc.Predictions(ctx, lake.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": preds})
}

// scoreRequest carries the six components at the top level. lakeId is
// optional; confidence defaults to 1.
type scoreRequest struct {
	domain.RawComponents
	LakeID     string   `json:"lakeId"`
	Confidence *float64 `json:"confidence"`
}

func (s *Server) handleComputeScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badBody(err))
		return
	}
	components, err := req.Components()
	if err != nil {
		s.writeError(c, err)
		return
	}
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	hs, err := s.svc.ComputeHealthScore(req.LakeID, components, confidence)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hs})
}

type predictionRequest struct {
	LakeID       string `json:"lakeId"`
	CurrentScore *int   `json:"currentScore"`
}

func (s *Server) handleGeneratePredictions(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badBody(err))
		return
	}
	if req.LakeID == "" {
		s.writeError(c, &domain.ValidationError{Field: "lakeId", Message: "is required"})
		return
	}
	if req.CurrentScore == nil {
		s.writeError(c, &domain.ValidationError{Field: "currentScore", Message: "is required"})
		return
	}

	preds, err := s.svc.GeneratePredictions(req.LakeID, *req.CurrentScore)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": preds})
}

func (s *Server) handleListAlerts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	filter := domain.AlertFilter{Status: domain.AlertStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		s.writeError(c, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)})
		return
	}
	if ref := c.Query("lakeId"); ref != "" {
		lake, err := s.svc.ResolveLake(ctx, ref)
		if err != nil {
			s.writeError(c, err)
			return
		}
		filter.LakeID = lake.ID
	}

	alerts, err := s.svc.Alerts(ctx, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "meta": gin.H{"count": len(alerts)}})
}

func (s *Server) handleTransition(action domain.AlertAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			s.writeError(c, fmt.Errorf("alert %q: %w", id, domain.ErrNotFound))
			return
		}
		alert, err := s.svc.TransitionAlert(ctx, id, action)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": alert})
	}
}

func (s *Server) handleSubmitReport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var raw domain.RawReport
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.writeError(c, badBody(err))
		return
	}
	report, err := s.svc.SubmitReport(ctx, raw)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": report})
}

func (s *Server) handleListReports(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	filter := domain.ReportFilter{Status: domain.ReportStatus(c.Query("status"))}
	if err := filter.Validate(); err != nil {
		s.writeError(c, err)
		return
	}
	if ref := c.Query("lakeId"); ref != "" {
		lake, err := s.svc.ResolveLake(ctx, ref)
		if err != nil {
			s.writeError(c, err)
			return
		}
		filter.LakeID = lake.ID
	}

	reports, err := s.svc.Reports(ctx, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports, "meta": gin.H{"count": len(reports)}})
}

func badBody(err error) error {
	return &domain.ValidationError{Field: "body", Message: "malformed JSON", Err: err}
}
