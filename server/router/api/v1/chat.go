package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eduloop/eduloop/plugin/ai/agent"
	"github.com/eduloop/eduloop/server/internal/observability"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string             `json:"reply"`
	AgentUsed agent.AgentUsed    `json:"agent_used"`
	State     agent.SessionState `json:"state"`
}

func (s *APIV1Service) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	sessionID := c.Param("id")
	rc := observability.NewRequestContext(slog.Default(), sessionID)

	reply, agentUsed, err := s.Orchestrator.Route(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		rc.Error("chat failed", err)
		return httpError(err)
	}

	session, err := s.Orchestrator.GetSession(sessionID)
	if err != nil {
		return httpError(err)
	}

	rc.Info("chat handled",
		slog.String(observability.LogFieldCapability, string(agentUsed)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	return c.JSON(http.StatusOK, &chatResponse{
		Reply:     reply,
		AgentUsed: agentUsed,
		State:     session.State,
	})
}

type issueQuestionsRequest struct {
	Count int `json:"count"`
}

type issueQuestionsResponse struct {
	Questions []*agent.Question `json:"questions"`
}

func (s *APIV1Service) issueQuestions(c echo.Context) error {
	var req issueQuestionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	questions, err := s.Orchestrator.IssueQuestions(c.Request().Context(), c.Param("id"), req.Count)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, &issueQuestionsResponse{Questions: questions})
}
