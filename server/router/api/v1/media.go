package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eduloop/eduloop/plugin/ai"
)

type paraphraseRequest struct {
	RawContent string `json:"raw_content"`
	Topic      string `json:"topic"`
}

func (s *APIV1Service) paraphrase(c echo.Context) error {
	if s.Speech == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI is not configured")
	}
	var req paraphraseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.RawContent) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "raw_content is required")
	}

	spoken, err := s.Speech.Paraphrase(c.Request().Context(), req.RawContent, req.Topic)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"paraphrased": spoken})
}

type ttsRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
}

type ttsResponse struct {
	AudioHex      string `json:"audio_hex"`
	AudioLengthMs int64  `json:"audio_length_ms"`
	Format        string `json:"format"`
}

func (s *APIV1Service) textToSpeech(c echo.Context) error {
	if s.Speech == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI is not configured")
	}
	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	result, err := s.Speech.Synthesize(c.Request().Context(), req.Text, req.VoiceID, req.Speed)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, &ttsResponse{
		AudioHex:      result.AudioHex,
		AudioLengthMs: result.DurationMs,
		Format:        result.Format,
	})
}

type videoRequest struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
}

func (s *APIV1Service) submitVideo(c echo.Context) error {
	if s.Video == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI is not configured")
	}
	var req videoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	taskID, err := s.Video.Submit(c.Request().Context(), req.Prompt, req.Duration)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"task_id": taskID})
}

type videoStatusResponse struct {
	TaskID      string         `json:"task_id"`
	Status      ai.VideoStatus `json:"status"`
	DownloadURL string         `json:"download_url,omitempty"`
}

// videoStatus exposes one poll so the caller sees intermediate progress
// instead of blocking on the whole job.
func (s *APIV1Service) videoStatus(c echo.Context) error {
	if s.Video == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI is not configured")
	}

	task, err := s.Video.Status(c.Request().Context(), c.Param("task_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, &videoStatusResponse{
		TaskID:      task.TaskID,
		Status:      task.Status,
		DownloadURL: task.DownloadURL,
	})
}
