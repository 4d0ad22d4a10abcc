package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/eduloop/eduloop/plugin/ai"
	"github.com/eduloop/eduloop/plugin/ai/timeout"
)

// RouteResult is the routing classification outcome.
type RouteResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"` // "rule", "llm", or "fallback"
}

// ChatRouter routes student input to the appropriate session type. Hybrid
// approach: fast rule matching first, then LLM for uncertain cases. Routing
// never hard-fails; ambiguity falls back to the teaching intent for
// open-ended questions and general otherwise.
type ChatRouter struct {
	classifier *IntentClassifier
	llm        ai.LLMService
}

// NewChatRouter creates a hybrid rule+LLM router. llm may be nil, in which
// case only the rule path runs.
func NewChatRouter(llm ai.LLMService) *ChatRouter {
	return &ChatRouter{
		classifier: NewIntentClassifier(),
		llm:        llm,
	}
}

// Route classifies the input. hasOpenQuestion reports whether the session
// has an issued, unanswered assessment question.
func (r *ChatRouter) Route(ctx context.Context, input string, hasOpenQuestion bool) *RouteResult {
	intent, confidence := r.classifier.Classify(input, hasOpenQuestion)
	if confidence >= 0.6 {
		slog.Debug("chat routed by rules",
			"input", truncateString(input, 30),
			"intent", intent,
			"confidence", confidence)
		return &RouteResult{Intent: intent, Confidence: confidence, Method: "rule"}
	}

	if r.llm != nil {
		if result, err := r.routeByLLM(ctx, input); err == nil {
			slog.Debug("chat routed by LLM",
				"input", truncateString(input, 30),
				"intent", result.Intent,
				"confidence", result.Confidence)
			return result
		} else {
			slog.Warn("LLM routing failed, applying fallback policy",
				"error", err,
				"input", truncateString(input, 30))
		}
	}

	// Fallback policy: open-ended questions go to teaching; a submission is
	// only inferred when a question is open.
	fallback := IntentGeneral
	if intent == IntentTeaching || endsWithQuestion(input) {
		fallback = IntentTeaching
	}
	return &RouteResult{Intent: fallback, Confidence: 0.5, Method: "fallback"}
}

func (r *ChatRouter) routeByLLM(ctx context.Context, input string) (*RouteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.RouteTimeout)
	defer cancel()

	start := time.Now()
	reply, err := r.llm.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(intentRouterSystemPrompt),
		ai.UserMessage(input),
	})
	if err != nil {
		return nil, err
	}

	var raw struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := safeJSONExtract(reply, &raw); err != nil {
		return nil, err
	}

	intent := IntentGeneral
	switch raw.Intent {
	case "teaching":
		intent = IntentTeaching
	case "assessment":
		intent = IntentAssessment
	}

	slog.Debug("intent classifier LLM completed",
		"intent", intent,
		"latency_ms", time.Since(start).Milliseconds())

	return &RouteResult{Intent: intent, Confidence: raw.Confidence, Method: "llm"}, nil
}

func endsWithQuestion(input string) bool {
	trimmed := []rune(input)
	for i := len(trimmed) - 1; i >= 0; i-- {
		switch trimmed[i] {
		case ' ', '\n', '\t':
			continue
		case '?', '？':
			return true
		default:
			return false
		}
	}
	return false
}
