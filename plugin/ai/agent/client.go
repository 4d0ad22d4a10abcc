package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/plugin/ai"
)

// GroundingChunk is a retrieved excerpt supplied as context to a generative
// capability.
type GroundingChunk struct {
	Source string
	Text   string
	Score  float64
}

// LessonRequest carries the inputs for lesson generation.
type LessonRequest struct {
	Topic          string
	Level          string
	StudentProfile string
	FocusTopics    []string
	Grounding      []GroundingChunk
}

// EvaluationRequest carries the inputs for answer evaluation.
type EvaluationRequest struct {
	Topic         string
	QuestionText  string
	StudentAnswer string
	Difficulty    Difficulty
	MarkingScheme string
}

// ChatDecision is the orchestrator capability's routing output.
type ChatDecision struct {
	Action        string `json:"action"` // teach | assess | direct
	Reply         string `json:"reply"`
	TeachTopic    string `json:"teach_topic"`
	QuestionText  string `json:"question_text"`
	StudentAnswer string `json:"student_answer"`
}

// Client invokes named generative capabilities. Every call blocks until the
// upstream completes or ctx is done; timeouts are owned by the caller.
type Client interface {
	GenerateLesson(ctx context.Context, req *LessonRequest) (*Lesson, error)
	EvaluateAnswer(ctx context.Context, req *EvaluationRequest) (*AssessmentResult, error)
	DecideChat(ctx context.Context, message string, history []ChatMessage) (*ChatDecision, error)
	FormatQuestion(ctx context.Context, rawText, topic string) (string, error)
	Paraphrase(ctx context.Context, content, topic string) (string, error)
}

// llmClient implements Client over an OpenAI-compatible chat endpoint.
type llmClient struct {
	llm ai.LLMService
}

// NewClient creates an LLM-backed capability client.
func NewClient(llm ai.LLMService) Client {
	return &llmClient{llm: llm}
}

func (c *llmClient) GenerateLesson(ctx context.Context, req *LessonRequest) (*Lesson, error) {
	system := teachingSystemPrompt(req.Topic, req.Level, req.StudentProfile, req.FocusTopics)

	user := "Teach this topic now."
	if g := groundingContext(req.Grounding); g != "" {
		user = g + "\n" + user
	}

	start := time.Now()
	reply, err := c.llm.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(system),
		ai.UserMessage(user),
	})
	if err != nil {
		return nil, errors.Wrap(err, "lesson generation failed")
	}

	var payload struct {
		Status             string         `json:"status"`
		Topic              string         `json:"topic"`
		ContentBlocks      []ContentBlock `json:"content_blocks"`
		ConstructiveAdvice string         `json:"constructive_advice"`
		LearningObjectives []string       `json:"learning_objectives"`
		SuggestedQuestions []string       `json:"suggested_questions"`
	}
	if err := safeJSONExtract(reply, &payload); err != nil {
		return nil, errors.Wrap(err, "lesson reply is not valid JSON")
	}
	if len(payload.ContentBlocks) == 0 {
		return nil, errors.New("lesson reply has no content blocks")
	}

	references := make([]string, 0, len(req.Grounding))
	seen := map[string]bool{}
	for _, g := range req.Grounding {
		if !seen[g.Source] {
			seen[g.Source] = true
			references = append(references, g.Source)
		}
	}

	slog.Debug("lesson generated",
		"topic", req.Topic,
		"blocks", len(payload.ContentBlocks),
		"latency_ms", time.Since(start).Milliseconds())

	return &Lesson{
		ID:                  "lesson-" + shortuuid.New(),
		Topic:               req.Topic,
		Status:              StatusSuccess,
		ContentBlocks:       payload.ContentBlocks,
		LearningObjectives:  payload.LearningObjectives,
		ConstructiveAdvice:  payload.ConstructiveAdvice,
		SuggestedQuestions:  payload.SuggestedQuestions,
		GroundingChunksUsed: len(req.Grounding),
		References:          references,
		CreatedAt:           time.Now(),
	}, nil
}

func (c *llmClient) EvaluateAnswer(ctx context.Context, req *EvaluationRequest) (*AssessmentResult, error) {
	system := assessmentSystemPrompt(req.Topic, req.Difficulty, req.MarkingScheme)
	user := "Question:\n" + req.QuestionText + "\n\nStudent's Answer:\n" + req.StudentAnswer

	reply, err := c.llm.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(system),
		ai.UserMessage(user),
	})
	if err != nil {
		return nil, errors.Wrap(err, "answer evaluation failed")
	}

	var payload struct {
		Status          string            `json:"status"`
		ScorePercentage float64           `json:"score_percentage"`
		Report          *DiagnosticReport `json:"diagnostic_report"`
		NextStep        *struct {
			Action      string   `json:"action"`
			FocusTopics []string `json:"focus_topics"`
		} `json:"next_step_recommendation"`
	}
	if err := safeJSONExtract(reply, &payload); err != nil {
		return nil, errors.Wrap(err, "evaluation reply is not valid JSON")
	}
	if payload.Report == nil {
		return nil, errors.New("evaluation reply has no diagnostic report")
	}

	score := payload.ScorePercentage
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result := &AssessmentResult{
		ID:              "assess-" + shortuuid.New(),
		Topic:           req.Topic,
		Difficulty:      req.Difficulty,
		StudentAnswer:   req.StudentAnswer,
		Status:          StatusSuccess,
		ScorePercentage: &score,
		Report:          payload.Report,
		CreatedAt:       time.Now(),
	}
	if payload.NextStep != nil {
		result.NextStep = &NextStepRecommendation{
			Action:      mapNextStepAction(payload.NextStep.Action),
			FocusTopics: payload.NextStep.FocusTopics,
		}
	}
	return result, nil
}

func (c *llmClient) DecideChat(ctx context.Context, message string, history []ChatMessage) (*ChatDecision, error) {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemPrompt(orchestratorSystemPrompt))
	// Only recent turns go upstream; the full history stays in the session.
	for _, turn := range tailTurns(history, 10) {
		messages = append(messages, ai.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, ai.UserMessage(message))

	reply, err := c.llm.ChatJSON(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "chat decision failed")
	}

	decision := &ChatDecision{}
	if err := safeJSONExtract(reply, decision); err != nil {
		return nil, errors.Wrap(err, "chat decision is not valid JSON")
	}
	return decision, nil
}

func (c *llmClient) FormatQuestion(ctx context.Context, rawText, topic string) (string, error) {
	user := rawText
	if topic != "" {
		user = "Topic: " + topic + "\n\n" + rawText
	}
	reply, err := c.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(formatSystemPrompt),
		ai.UserMessage(user),
	})
	if err != nil {
		return "", errors.Wrap(err, "question formatting failed")
	}
	cleaned := strings.TrimSpace(reply)
	if cleaned == "" {
		return "", errors.New("formatting returned empty text")
	}
	return cleaned, nil
}

func (c *llmClient) Paraphrase(ctx context.Context, content, topic string) (string, error) {
	const maxContent = 4000
	if len(content) > maxContent {
		content = content[:maxContent]
	}
	user := "Topic: " + topic + "\n\nContent to paraphrase:\n\n" + content

	reply, err := c.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(paraphraseSystemPrompt),
		ai.UserMessage(user),
	})
	if err != nil {
		return "", errors.Wrap(err, "paraphrase failed")
	}
	return strings.TrimSpace(reply), nil
}

func mapNextStepAction(s string) NextStepAction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "advance":
		return ActionAdvance
	case "reteach_specifics":
		return ActionReteachSpecifics
	default:
		return ActionReview
	}
}

func tailTurns(history []ChatMessage, n int) []ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
