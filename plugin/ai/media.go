package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SpeechRequest is a text-to-speech synthesis request.
type SpeechRequest struct {
	Text    string
	VoiceID string
	Speed   float64
}

// SpeechResult carries hex-encoded audio and its properties.
type SpeechResult struct {
	AudioHex   string
	DurationMs int64
	Format     string
}

// SpeechService synthesizes speech from text.
type SpeechService interface {
	Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error)
}

// VideoStatus is the lifecycle state of a video generation task.
type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusSuccess    VideoStatus = "success"
	VideoStatusFailure    VideoStatus = "failure"
)

// VideoTask is the status of a submitted video generation task.
type VideoTask struct {
	TaskID      string
	Status      VideoStatus
	FileID      string
	DownloadURL string
}

// VideoService submits and polls long-running video generation tasks.
type VideoService interface {
	Submit(ctx context.Context, prompt string, durationSec int) (string, error)
	Query(ctx context.Context, taskID string) (*VideoTask, error)
}

// baseResp is the upstream envelope status.
type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type MediaClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	speechModel string
	videoModel  string
}

// NewMediaClient creates a client for the speech and video endpoints. The
// returned value implements both SpeechService and VideoService.
func NewMediaClient(speechCfg *SpeechConfig, videoCfg *VideoConfig) (*MediaClient, error) {
	if speechCfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	baseURL := strings.TrimSuffix(speechCfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.minimax.io/v1"
	}
	return &MediaClient{
		httpClient:  &http.Client{Timeout: 90 * time.Second},
		apiKey:      speechCfg.APIKey,
		baseURL:     baseURL,
		speechModel: speechCfg.Model,
		videoModel:  videoCfg.Model,
	}, nil
}

func (c *MediaClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = "English_Insightful_Speaker"
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	payload := map[string]any{
		"model":          c.speechModel,
		"text":           req.Text,
		"stream":         false,
		"language_boost": "English",
		"output_format":  "hex",
		"voice_setting": map[string]any{
			"voice_id": voiceID,
			"speed":    speed,
			"vol":      1,
			"pitch":    0,
		},
		"audio_setting": map[string]any{
			"sample_rate": 32000,
			"bitrate":     128000,
			"format":      "mp3",
			"channel":     1,
		},
	}

	var resp struct {
		BaseResp baseResp `json:"base_resp"`
		Data     struct {
			Audio string `json:"audio"`
		} `json:"data"`
		ExtraInfo struct {
			AudioLength int64  `json:"audio_length"`
			AudioFormat string `json:"audio_format"`
		} `json:"extra_info"`
	}
	if err := c.post(ctx, "/t2a_v2", payload, &resp); err != nil {
		return nil, err
	}
	if resp.BaseResp.StatusCode != 0 {
		return nil, fmt.Errorf("speech synthesis rejected: %s", resp.BaseResp.StatusMsg)
	}

	format := resp.ExtraInfo.AudioFormat
	if format == "" {
		format = "mp3"
	}
	return &SpeechResult{
		AudioHex:   resp.Data.Audio,
		DurationMs: resp.ExtraInfo.AudioLength,
		Format:     format,
	}, nil
}

func (c *MediaClient) Submit(ctx context.Context, prompt string, durationSec int) (string, error) {
	if durationSec <= 0 {
		durationSec = 6
	}
	payload := map[string]any{
		"model":            c.videoModel,
		"prompt":           prompt,
		"prompt_optimizer": true,
		"duration":         durationSec,
		"resolution":       "768P",
	}

	var resp struct {
		BaseResp baseResp `json:"base_resp"`
		TaskID   string   `json:"task_id"`
	}
	if err := c.post(ctx, "/video_generation", payload, &resp); err != nil {
		return "", err
	}
	if resp.BaseResp.StatusCode != 0 {
		return "", fmt.Errorf("video submission rejected: %s", resp.BaseResp.StatusMsg)
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("video submission returned no task id")
	}
	return resp.TaskID, nil
}

func (c *MediaClient) Query(ctx context.Context, taskID string) (*VideoTask, error) {
	var resp struct {
		Status string `json:"status"`
		FileID string `json:"file_id"`
	}
	endpoint := "/query/video_generation?task_id=" + url.QueryEscape(taskID)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	task := &VideoTask{
		TaskID: taskID,
		FileID: resp.FileID,
		Status: mapVideoStatus(resp.Status),
	}
	if task.Status == VideoStatusSuccess && task.FileID != "" {
		downloadURL, err := c.retrieveFileURL(ctx, task.FileID)
		if err != nil {
			return nil, err
		}
		task.DownloadURL = downloadURL
	}
	return task, nil
}

func (c *MediaClient) retrieveFileURL(ctx context.Context, fileID string) (string, error) {
	var resp struct {
		File struct {
			DownloadURL string `json:"download_url"`
		} `json:"file"`
	}
	endpoint := "/files/retrieve?file_id=" + url.QueryEscape(fileID)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	return resp.File.DownloadURL, nil
}

func mapVideoStatus(s string) VideoStatus {
	switch strings.ToLower(s) {
	case "success":
		return VideoStatusSuccess
	case "fail", "failed", "failure":
		return VideoStatusFailure
	default:
		return VideoStatusProcessing
	}
}

func (c *MediaClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *MediaClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *MediaClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstream returned status code: %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}
