package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/plugin/ai/session"
	"github.com/eduloop/eduloop/plugin/ai/timeout"
)

// Orchestrator owns all sessions and is the only component that mutates
// them. Sessions are kept in an arena keyed by ID and serialized by a
// per-session mutex. Operations on distinct sessions run fully in parallel.
//
// The per-session lock is held for the whole operation, including the
// external call. Every external call carries a timeout, which guarantees
// forward progress for queued turns.
type Orchestrator struct {
	teaching    *TeachingSession
	assessment  *AssessmentSession
	router      *ChatRouter
	client      Client
	persistence session.Service
	metrics     *Metrics

	masteryThreshold float64
	questionCount    int

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

type managedSession struct {
	mu      sync.Mutex
	session *Session
}

// OrchestratorOptions configures a new Orchestrator.
type OrchestratorOptions struct {
	Teaching    *TeachingSession
	Assessment  *AssessmentSession
	Router      *ChatRouter
	Client      Client
	Persistence session.Service // optional
	Metrics     *Metrics        // optional

	// MasteryThreshold completes the loop when the estimate reaches it,
	// boundary inclusive. Zero means 0.85.
	MasteryThreshold float64

	// QuestionCount is how many questions one assessment cycle issues.
	// Zero means 3.
	QuestionCount int
}

// NewOrchestrator creates the session state machine.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Teaching == nil || opts.Assessment == nil || opts.Router == nil || opts.Client == nil {
		return nil, errors.New("teaching, assessment, router, and client are required")
	}
	threshold := opts.MasteryThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	questionCount := opts.QuestionCount
	if questionCount <= 0 {
		questionCount = 3
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Orchestrator{
		teaching:         opts.Teaching,
		assessment:       opts.Assessment,
		router:           opts.Router,
		client:           opts.Client,
		persistence:      opts.Persistence,
		metrics:          metrics,
		masteryThreshold: threshold,
		questionCount:    questionCount,
		sessions:         make(map[string]*managedSession),
	}, nil
}

// Metrics exposes the capability counters.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// MasteryThreshold reports the configured completion threshold.
func (o *Orchestrator) MasteryThreshold() float64 {
	return o.masteryThreshold
}

// CreateSession registers a new session in INITIALIZED state.
func (o *Orchestrator) CreateSession(ctx context.Context, topic, level, studentProfile string) (*Session, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "topic is required")
	}

	now := time.Now()
	s := &Session{
		ID:             uuid.NewString(),
		State:          StateInitialized,
		Topic:          topic,
		Level:          level,
		StudentProfile: studentProfile,
		Difficulty:     difficultyForLevel(level),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	o.mu.Lock()
	o.sessions[s.ID] = &managedSession{session: s}
	o.mu.Unlock()

	o.persist(ctx, s)
	slog.Info("session created", "session", s.ID, "topic", topic, "difficulty", s.Difficulty)
	return snapshot(s), nil
}

// GetSession returns a copy of the session, or ErrSessionNotFound.
func (o *Orchestrator) GetSession(id string) (*Session, error) {
	ms, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return snapshot(ms.session), nil
}

// ListSessions returns copies of all live sessions.
func (o *Orchestrator) ListSessions() []*Session {
	o.mu.RLock()
	managed := make([]*managedSession, 0, len(o.sessions))
	for _, ms := range o.sessions {
		managed = append(managed, ms)
	}
	o.mu.RUnlock()

	out := make([]*Session, 0, len(managed))
	for _, ms := range managed {
		ms.mu.Lock()
		out = append(out, snapshot(ms.session))
		ms.mu.Unlock()
	}
	return out
}

// Restore loads a persisted session back into the arena. Used at startup.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if o.persistence == nil {
		return nil
	}
	records, err := o.persistence.List(ctx, 0)
	if err != nil {
		return errors.Wrap(err, "failed to list persisted sessions")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, record := range records {
		var s Session
		if err := json.Unmarshal(record.Payload, &s); err != nil {
			slog.Warn("skipping unreadable session snapshot", "session", record.UID, "error", err)
			continue
		}
		if _, exists := o.sessions[s.ID]; !exists {
			o.sessions[s.ID] = &managedSession{session: &s}
		}
	}
	slog.Info("sessions restored", "count", len(records))
	return nil
}

// Route classifies the student message and dispatches it to the teaching or
// assessment session, or answers directly. Exactly two history entries are
// appended per call: the user message, then the reply. A failed dispatch
// still appends a reply tagged with the error agent; the session state never
// partially advances.
func (o *Orchestrator) Route(ctx context.Context, sessionID, message string) (string, AgentUsed, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return "", AgentError, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.session

	if s.State == StateCompleted {
		return "", AgentError, errors.Wrap(ErrInvalidTransition, "session is completed")
	}

	hasOpenQuestion := len(s.OpenQuestions) > 0 && s.State == StateAssessment
	route := o.router.Route(ctx, message, hasOpenQuestion)

	var reply string
	var agentUsed AgentUsed
	switch route.Intent {
	case IntentTeaching:
		reply, agentUsed = o.handleTeaching(ctx, s, message)
	case IntentAssessment:
		reply, agentUsed = o.handleAssessment(ctx, s, message)
	default:
		reply, agentUsed = o.handleGeneral(ctx, s, message)
	}

	appendTurn(s, RoleUser, message, "")
	appendTurn(s, RoleAssistant, reply, agentUsed)
	s.UpdatedAt = time.Now()
	o.persist(ctx, s)

	slog.Info("message routed",
		"session", s.ID,
		"intent", route.Intent,
		"method", route.Method,
		"agent", agentUsed,
		"state", s.State)
	return reply, agentUsed, nil
}

func (o *Orchestrator) handleTeaching(ctx context.Context, s *Session, message string) (string, AgentUsed) {
	if s.State == StateInitialized {
		s.State = StateTeaching
	}

	// A teaching request can name a different topic than the session was
	// created with.
	if topic := extractTopic(message); topic != "" && !strings.EqualFold(topic, s.Topic) {
		s.Topic = topic
	}

	start := time.Now()
	lesson, err := o.teaching.GenerateLesson(ctx, s)
	o.metrics.Record("teaching", time.Since(start), err)
	if err != nil {
		// Only context cancellation reaches here.
		return "I couldn't prepare the lesson in time. Please try again.", AgentError
	}
	if lesson.Status == StatusError {
		// Carried as data. State stays put so the caller can retry.
		return "I couldn't prepare the lesson right now (" + lesson.Error + "). Please try again.", AgentError
	}

	s.CurrentLesson = lesson
	if s.State == StateTeaching {
		s.State = StateAssessment
		s.OpenQuestions = nil
		s.Results = nil
	}
	return renderLesson(lesson), AgentTeaching
}

func (o *Orchestrator) handleAssessment(ctx context.Context, s *Session, message string) (string, AgentUsed) {
	if len(s.OpenQuestions) == 0 || s.State != StateAssessment {
		return "There's no open question to grade yet. Ask me for practice questions first.", AgentOrchestrator
	}

	question := s.OpenQuestions[0]
	start := time.Now()
	result, err := o.assessment.Evaluate(ctx, question, message, s.Topic, s.Difficulty)
	o.metrics.Record("assessment", time.Since(start), err)
	if err != nil {
		// Typed failure: the question stays open, state does not move.
		result = &AssessmentResult{
			ID:            "assess-" + uuid.NewString()[:8],
			Topic:         s.Topic,
			Difficulty:    s.Difficulty,
			StudentAnswer: message,
			Status:        StatusError,
			Error:         err.Error(),
			CreatedAt:     time.Now(),
		}
		s.Results = append(s.Results, result)
		return "I couldn't grade that answer right now. Your answer is saved; please try submitting again.", AgentError
	}

	s.Results = append(s.Results, result)
	s.OpenQuestions = s.OpenQuestions[1:]
	if len(s.OpenQuestions) == 0 {
		s.State = StateAnalysis
	}
	return renderResult(result, len(s.OpenQuestions)), AgentAssessment
}

func (o *Orchestrator) handleGeneral(ctx context.Context, s *Session, message string) (string, AgentUsed) {
	start := time.Now()
	decision, err := CallWithTimeout(ctx, "chat", timeout.ChatTimeout, func(ctx context.Context) (*ChatDecision, error) {
		return o.client.DecideChat(ctx, message, s.History)
	})
	o.metrics.Record("chat", time.Since(start), err)
	if err != nil {
		return "I'm here to help you learn " + s.Topic + ". Ask me to explain a concept, or request practice questions.", AgentOrchestrator
	}

	switch decision.Action {
	case "teach":
		if decision.TeachTopic != "" {
			s.Topic = decision.TeachTopic
		}
		return o.handleTeaching(ctx, s, message)
	case "assess":
		return o.handleAssessment(ctx, s, decision.StudentAnswer)
	default:
		if decision.Reply == "" {
			decision.Reply = "Let's keep going with " + s.Topic + ". What would you like to do next?"
		}
		return decision.Reply, AgentOrchestrator
	}
}

// IssueQuestions fetches and formats a batch of practice questions for the
// session's topic. Requires the session to be in ASSESSMENT; retrieval
// starvation is reported as ErrContentUnavailable and the state stays put.
func (o *Orchestrator) IssueQuestions(ctx context.Context, sessionID string, n int) ([]*Question, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.session

	if s.State != StateAssessment {
		return nil, errors.Wrapf(ErrInvalidTransition, "cannot issue questions in state %s", s.State)
	}
	if n <= 0 {
		n = o.questionCount
	}

	start := time.Now()
	questions, err := o.assessment.FetchQuestions(ctx, s.Topic, n)
	o.metrics.Record("fetch_questions", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	questions = o.assessment.FormatForDisplay(ctx, questions, s.Topic)
	s.OpenQuestions = questions
	s.UpdatedAt = time.Now()
	o.persist(ctx, s)
	return questions, nil
}

// Advance executes exactly one state transition. Transitions fire only when
// their producing operation has completed; an off-table attempt fails with
// ErrInvalidTransition and leaves the state unchanged.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string) (*Session, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.session

	prior := s.State
	switch s.State {
	case StateInitialized:
		s.State = StateTeaching

	case StateTeaching:
		if s.CurrentLesson == nil || s.CurrentLesson.Status != StatusSuccess {
			return nil, errors.Wrap(ErrInvalidTransition, "no lesson produced yet")
		}
		s.State = StateAssessment

	case StateAssessment:
		if !hasSuccessfulResult(s.Results) {
			return nil, errors.Wrap(ErrInvalidTransition, "no answers submitted yet")
		}
		s.State = StateAnalysis

	case StateAnalysis:
		report := o.assessment.SynthesizeDiagnostic(s.Results)
		s.LatestReport = report
		if mastery, ok := MeanScore(s.Results); ok {
			s.MasteryEstimate = mastery
		}
		s.State = StateFeedback

	case StateFeedback:
		directive := o.ProcessFeedbackLoop(s, s.LatestReport)
		if directive.Completed {
			s.State = StateCompleted
		} else {
			o.teaching.InvalidateLessons(directive.Topic)
			s.Topic = directive.Topic
			s.Difficulty = directive.Difficulty
			s.FocusTopics = directive.FocusTopics
			s.CurrentLesson = nil
			s.OpenQuestions = nil
			s.Results = nil
			s.CycleCount++
			s.State = StateTeaching
		}

	case StateCompleted:
		return nil, errors.Wrap(ErrInvalidTransition, "session is completed")

	default:
		return nil, errors.Wrapf(ErrInvalidTransition, "unknown state %s", s.State)
	}

	s.UpdatedAt = time.Now()
	o.persist(ctx, s)
	slog.Info("session advanced", "session", s.ID, "from", prior, "to", s.State)
	return snapshot(s), nil
}

// ProcessFeedbackLoop maps a diagnostic report and the session's mastery
// estimate to the next cycle's directive. Pure: identical inputs yield
// identical output, and neither argument is mutated. The threshold is
// boundary inclusive.
func (o *Orchestrator) ProcessFeedbackLoop(s *Session, report *DiagnosticReport) *NextTopicDirective {
	if s.MasteryEstimate >= o.masteryThreshold {
		return &NextTopicDirective{
			Topic:      s.Topic,
			Difficulty: s.Difficulty.StepUp(),
			Completed:  true,
		}
	}

	directive := &NextTopicDirective{
		Topic:      s.Topic,
		Difficulty: s.Difficulty,
	}
	if s.MasteryEstimate < 0.5 {
		directive.Difficulty = s.Difficulty.StepDown()
	}
	if report != nil {
		directive.FocusTopics = append([]string(nil), report.KnowledgeGaps...)
	}
	return directive
}

// EndSession terminates the session explicitly, from any live state.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) (*Session, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.session

	s.State = StateCompleted
	s.UpdatedAt = time.Now()
	o.persist(ctx, s)
	slog.Info("session ended", "session", s.ID)
	return snapshot(s), nil
}

func (o *Orchestrator) lookup(id string) (*managedSession, error) {
	o.mu.RLock()
	ms, ok := o.sessions[id]
	o.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %q", id)
	}
	return ms, nil
}

// persist is best-effort; a storage failure never blocks the loop.
func (o *Orchestrator) persist(ctx context.Context, s *Session) {
	if o.persistence == nil {
		return
	}
	payload, err := json.Marshal(s)
	if err != nil {
		slog.Error("failed to marshal session", "session", s.ID, "error", err)
		return
	}
	record := &session.Record{
		UID:     s.ID,
		State:   string(s.State),
		Topic:   s.Topic,
		Payload: payload,
	}
	if err := o.persistence.Save(ctx, record); err != nil {
		slog.Error("failed to persist session", "session", s.ID, "error", err)
	}
}

func appendTurn(s *Session, role ChatRole, content string, agentUsed AgentUsed) {
	s.History = append(s.History, ChatMessage{
		Role:      role,
		Content:   content,
		AgentUsed: agentUsed,
		CreatedAt: time.Now(),
	})
}

func snapshot(s *Session) *Session {
	copied := *s
	copied.History = append([]ChatMessage(nil), s.History...)
	copied.FocusTopics = append([]string(nil), s.FocusTopics...)
	copied.OpenQuestions = append([]*Question(nil), s.OpenQuestions...)
	copied.Results = append([]*AssessmentResult(nil), s.Results...)
	return &copied
}

func hasSuccessfulResult(results []*AssessmentResult) bool {
	for _, r := range results {
		if r != nil && r.Status == StatusSuccess {
			return true
		}
	}
	return false
}

func difficultyForLevel(level string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "foundational", "beginner", "s4":
		return DifficultyFoundational
	case "advanced", "s6":
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

// extractTopic pulls an explicit topic out of phrasings like "teach me
// quadratic equations" or "explain vectors". Empty when nothing matches.
func extractTopic(message string) string {
	lower := strings.ToLower(message)
	for _, prefix := range []string{"teach me about ", "teach me ", "explain ", "help me understand "} {
		if idx := strings.Index(lower, prefix); idx != -1 {
			topic := strings.TrimSpace(message[idx+len(prefix):])
			topic = strings.TrimRight(topic, "?.! ")
			if topic != "" && len(topic) < 80 {
				return topic
			}
		}
	}
	return ""
}

func renderLesson(lesson *Lesson) string {
	var sb strings.Builder
	for i, block := range lesson.ContentBlocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block.Text)
	}
	if lesson.ConstructiveAdvice != "" {
		sb.WriteString("\n\n")
		sb.WriteString(lesson.ConstructiveAdvice)
	}
	return sb.String()
}

func renderResult(result *AssessmentResult, remaining int) string {
	var sb strings.Builder
	if result.ScorePercentage != nil {
		fmt.Fprintf(&sb, "Score: %.0f%%\n\n", *result.ScorePercentage)
	}
	if result.Report != nil {
		sb.WriteString(result.Report.ConstructiveFeedback)
	}
	if remaining > 0 {
		fmt.Fprintf(&sb, "\n\n%d question(s) remaining in this set.", remaining)
	}
	return sb.String()
}
