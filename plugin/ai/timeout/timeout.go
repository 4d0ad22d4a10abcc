// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

// AI operation timeout constants. These are defaults; the retry layer accepts
// overrides so deployments behind slower upstreams can widen them without
// touching business logic.
const (
	// LessonTimeout is the timeout for lesson generation (multi-step generative call).
	LessonTimeout = 150 * time.Second

	// ChatTimeout is the timeout for orchestrator chat routing and replies.
	ChatTimeout = 150 * time.Second

	// AssessTimeout is the timeout for answer evaluation.
	AssessTimeout = 150 * time.Second

	// FormatTimeout is the timeout for batch question formatting.
	FormatTimeout = 150 * time.Second

	// RouteTimeout is the timeout for LLM intent classification.
	RouteTimeout = 10 * time.Second

	// SpeechTimeout is the timeout for speech synthesis.
	SpeechTimeout = 60 * time.Second

	// VideoSubmitTimeout is the timeout for video task submission.
	VideoSubmitTimeout = 30 * time.Second

	// VideoPollTimeout is the timeout for a single video status poll.
	VideoPollTimeout = 15 * time.Second

	// VideoPollInterval is the fixed delay between video status polls.
	VideoPollInterval = 10 * time.Second

	// VideoJobBudget is the overall elapsed-time budget for a video job.
	VideoJobBudget = 10 * time.Minute

	// RetrievalTimeout is the timeout for corpus retrieval.
	RetrievalTimeout = 15 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
