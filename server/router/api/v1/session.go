package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eduloop/eduloop/plugin/ai/agent"
	"github.com/eduloop/eduloop/server/internal/observability"
)

type createSessionRequest struct {
	Topic          string `json:"topic"`
	Level          string `json:"level"`
	StudentProfile string `json:"student_profile"`
}

func (s *APIV1Service) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	session, err := s.Orchestrator.CreateSession(c.Request().Context(), req.Topic, req.Level, req.StudentProfile)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *APIV1Service) getSession(c echo.Context) error {
	session, err := s.Orchestrator.GetSession(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *APIV1Service) listSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Orchestrator.ListSessions())
}

func (s *APIV1Service) advanceSession(c echo.Context) error {
	rc := observability.NewRequestContext(slog.Default(), c.Param("id"))

	session, err := s.Orchestrator.Advance(c.Request().Context(), c.Param("id"))
	if err != nil {
		rc.Warn("advance rejected", slog.String("error", err.Error()))
		return httpError(err)
	}
	rc.Info("session advanced",
		slog.String(observability.LogFieldState, string(session.State)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	return c.JSON(http.StatusOK, session)
}

func (s *APIV1Service) endSession(c echo.Context) error {
	session, err := s.Orchestrator.EndSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

type sessionSummary struct {
	SessionID       string                  `json:"session_id"`
	State           agent.SessionState      `json:"state"`
	Topic           string                  `json:"topic"`
	Difficulty      agent.Difficulty        `json:"difficulty"`
	MasteryEstimate float64                 `json:"mastery_estimate"`
	MasteryLabel    string                  `json:"mastery_label"`
	CycleCount      int                     `json:"cycle_count"`
	Turns           int                     `json:"turns"`
	LatestReport    *agent.DiagnosticReport `json:"latest_report,omitempty"`
}

func (s *APIV1Service) sessionSummary(c echo.Context) error {
	session, err := s.Orchestrator.GetSession(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, &sessionSummary{
		SessionID:       session.ID,
		State:           session.State,
		Topic:           session.Topic,
		Difficulty:      session.Difficulty,
		MasteryEstimate: session.MasteryEstimate,
		MasteryLabel:    session.MasteryLabel(s.Orchestrator.MasteryThreshold()),
		CycleCount:      session.CycleCount,
		Turns:           len(session.History),
		LatestReport:    session.LatestReport,
	})
}

// exportSession returns the full session snapshot as a download.
func (s *APIV1Service) exportSession(c echo.Context) error {
	session, err := s.Orchestrator.GetSession(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="session-`+session.ID+`.json"`)
	return c.JSONPretty(http.StatusOK, session, "  ")
}

func (s *APIV1Service) metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Orchestrator.Metrics().Snapshot())
}
