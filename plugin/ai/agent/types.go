// Package agent implements the mastery-learning loop: a session state
// machine that sequences teaching and assessment, routes chat by intent,
// and feeds diagnostic results back into the next lesson.
package agent

import "time"

// SessionState is the lifecycle phase of a learning session.
type SessionState string

const (
	StateInitialized SessionState = "INITIALIZED"
	StateTeaching    SessionState = "TEACHING"
	StateAssessment  SessionState = "ASSESSMENT"
	StateAnalysis    SessionState = "ANALYSIS"
	StateFeedback    SessionState = "FEEDBACK"
	StateCompleted   SessionState = "COMPLETED"
)

// Difficulty is a rung on the fixed three-step ladder.
type Difficulty string

const (
	DifficultyFoundational Difficulty = "foundational"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// StepDown returns the next easier rung, saturating at foundational.
func (d Difficulty) StepDown() Difficulty {
	switch d {
	case DifficultyAdvanced:
		return DifficultyIntermediate
	case DifficultyIntermediate:
		return DifficultyFoundational
	default:
		return DifficultyFoundational
	}
}

// StepUp returns the next harder rung, saturating at advanced.
func (d Difficulty) StepUp() Difficulty {
	switch d {
	case DifficultyFoundational:
		return DifficultyIntermediate
	case DifficultyIntermediate:
		return DifficultyAdvanced
	default:
		return DifficultyAdvanced
	}
}

// ChatRole identifies who produced a turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// AgentUsed tags which capability produced a reply.
type AgentUsed string

const (
	AgentOrchestrator AgentUsed = "orchestrator"
	AgentTeaching     AgentUsed = "teaching"
	AgentAssessment   AgentUsed = "assessment"
	AgentError        AgentUsed = "error"
)

// ChatMessage is one turn in a session's history. Only the orchestrator
// appends messages.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	AgentUsed AgentUsed `json:"agent_used,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one student's continuous interaction with the loop. Mutated
// exclusively by the orchestrator's transition functions.
type Session struct {
	ID              string        `json:"id"`
	State           SessionState  `json:"state"`
	Topic           string        `json:"topic"`
	Level           string        `json:"level"`
	StudentProfile  string        `json:"student_profile"`
	Difficulty      Difficulty    `json:"difficulty"`
	History         []ChatMessage `json:"history"`
	MasteryEstimate float64       `json:"mastery_estimate"`
	CycleCount      int           `json:"cycle_count"`
	FocusTopics     []string      `json:"focus_topics,omitempty"`

	// CurrentLesson is the most recent teaching output, referenced by
	// assessment grounding.
	CurrentLesson *Lesson `json:"current_lesson,omitempty"`

	// OpenQuestions holds assessment questions issued but not yet answered.
	OpenQuestions []*Question `json:"open_questions,omitempty"`

	// Results accumulates evaluations for the current assessment cycle.
	Results []*AssessmentResult `json:"results,omitempty"`

	// LatestReport is the diagnostic synthesized in the last ANALYSIS phase.
	LatestReport *DiagnosticReport `json:"latest_report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MasteryLabel maps the estimate onto a coarse label for display. The top
// band follows the configured completion threshold; the lower bound matches
// the step-down band of the feedback policy.
func (s *Session) MasteryLabel(threshold float64) string {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	switch {
	case s.MasteryEstimate >= threshold:
		return "mastered"
	case s.MasteryEstimate >= 0.5:
		return "developing"
	default:
		return "emerging"
	}
}

// ContentBlockType classifies a lesson block.
type ContentBlockType string

const (
	BlockIntroduction  ContentBlockType = "introduction"
	BlockConcept       ContentBlockType = "concept"
	BlockExample       ContentBlockType = "example"
	BlockCommonPitfall ContentBlockType = "common_pitfall"
	BlockSummary       ContentBlockType = "summary"
)

// ContentBlock is one ordered piece of a lesson.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`
	Text string           `json:"text"`
}

// ResultStatus marks whether a generative call produced usable output.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// Lesson is the output of a teaching cycle. Immutable once produced. On
// failure Status is error, Error is set, and ContentBlocks is empty.
type Lesson struct {
	ID                  string         `json:"id"`
	Topic               string         `json:"topic"`
	Status              ResultStatus   `json:"status"`
	Error               string         `json:"error,omitempty"`
	ContentBlocks       []ContentBlock `json:"content_blocks,omitempty"`
	LearningObjectives  []string       `json:"learning_objectives,omitempty"`
	ConstructiveAdvice  string         `json:"constructive_advice,omitempty"`
	SuggestedQuestions  []string       `json:"suggested_questions,omitempty"`
	GroundingChunksUsed int            `json:"grounding_chunks_used"`
	References          []string       `json:"references,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Question is an assessment item paired with its marking scheme.
type Question struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	MarkingScheme string  `json:"marking_scheme,omitempty"`
	Source        string  `json:"source,omitempty"`
	Score         float64 `json:"score"`
	Formatted     bool    `json:"formatted"`
}

// DiagnosticReport is the structured outcome of evaluating answers.
type DiagnosticReport struct {
	Strengths             []string `json:"strengths"`
	KnowledgeGaps         []string `json:"knowledge_gaps"`
	ConstructiveFeedback  string   `json:"constructive_feedback"`
	MisconceptionAnalysis string   `json:"misconception_analysis,omitempty"`
}

// NextStepAction is the recommended path after an assessment.
type NextStepAction string

const (
	ActionAdvance          NextStepAction = "advance"
	ActionReview           NextStepAction = "review"
	ActionReteachSpecifics NextStepAction = "reteach_specifics"
)

// NextStepRecommendation accompanies a diagnostic report.
type NextStepRecommendation struct {
	Action      NextStepAction `json:"action"`
	FocusTopics []string       `json:"focus_topics,omitempty"`
}

// AssessmentResult is the evaluation of one answer. Immutable once
// produced. If Status is error the score and report fields are absent.
type AssessmentResult struct {
	ID              string                  `json:"id"`
	Topic           string                  `json:"topic"`
	Difficulty      Difficulty              `json:"difficulty"`
	StudentAnswer   string                  `json:"student_answer"`
	Status          ResultStatus            `json:"status"`
	Error           string                  `json:"error,omitempty"`
	ScorePercentage *float64                `json:"score_percentage,omitempty"`
	Report          *DiagnosticReport       `json:"diagnostic_report,omitempty"`
	NextStep        *NextStepRecommendation `json:"next_step_recommendation,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// NextTopicDirective is the feedback loop's instruction for the next
// teaching cycle.
type NextTopicDirective struct {
	Topic       string     `json:"topic"`
	Difficulty  Difficulty `json:"difficulty"`
	FocusTopics []string   `json:"focus_topics,omitempty"`
	Completed   bool       `json:"completed"`
}
