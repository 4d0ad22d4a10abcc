// Package v1 exposes the learning loop over a JSON HTTP API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/plugin/ai/agent"
)

// APIV1Service wires the orchestrator and media agents into HTTP routes.
type APIV1Service struct {
	Profile      *profile.Profile
	Orchestrator *agent.Orchestrator
	Speech       *agent.SpeechAgent // nil when AI is disabled
	Video        *agent.VideoAgent  // nil when AI is disabled
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, orchestrator *agent.Orchestrator, speech *agent.SpeechAgent, video *agent.VideoAgent) *APIV1Service {
	return &APIV1Service{
		Profile:      p,
		Orchestrator: orchestrator,
		Speech:       speech,
		Video:        video,
	}
}

// RegisterRoutes mounts all v1 routes on the group.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions", s.createSession)
	g.GET("/sessions", s.listSessions)
	g.GET("/sessions/:id", s.getSession)
	g.POST("/sessions/:id/advance", s.advanceSession)
	g.POST("/sessions/:id/end", s.endSession)
	g.GET("/sessions/:id/summary", s.sessionSummary)
	g.GET("/sessions/:id/export", s.exportSession)

	g.POST("/sessions/:id/chat", s.chat)
	g.POST("/sessions/:id/questions", s.issueQuestions)

	g.POST("/paraphrase", s.paraphrase)
	g.POST("/tts", s.textToSpeech)
	g.POST("/video", s.submitVideo)
	g.GET("/video/:task_id", s.videoStatus)

	g.GET("/metrics", s.metrics)
}

// httpError maps loop errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, agent.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, agent.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, agent.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, agent.ErrContentUnavailable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, agent.ErrJobTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}

	classified := agent.ClassifyError(err)
	if classified.IsTransient() {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
