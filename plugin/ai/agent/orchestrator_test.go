package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduloop/eduloop/plugin/ai/rag"
	"github.com/eduloop/eduloop/store"
)

// fakeClient is a controllable capability client shared by the package tests.
type fakeClient struct {
	mu sync.Mutex

	lessonErr    error
	lessonCalls  int
	capturedReq  *LessonRequest
	evalErr      error
	evalScore    float64
	evalGaps     []string
	decision     *ChatDecision
	decideErr    error
	formatErr    error
	formatSuffix string
}

func (f *fakeClient) GenerateLesson(ctx context.Context, req *LessonRequest) (*Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lessonCalls++
	f.capturedReq = req
	if f.lessonErr != nil {
		return nil, f.lessonErr
	}
	return &Lesson{
		ID:     "lesson-test",
		Topic:  req.Topic,
		Status: StatusSuccess,
		ContentBlocks: []ContentBlock{
			{Type: BlockIntroduction, Text: "Let's explore " + req.Topic + "."},
			{Type: BlockSummary, Text: "That's the core idea."},
		},
		LearningObjectives:  []string{"understand " + req.Topic},
		ConstructiveAdvice:  "Practice daily.",
		GroundingChunksUsed: len(req.Grounding),
	}, nil
}

func (f *fakeClient) EvaluateAnswer(ctx context.Context, req *EvaluationRequest) (*AssessmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	score := f.evalScore
	return &AssessmentResult{
		ID:              "assess-test",
		Topic:           req.Topic,
		Difficulty:      req.Difficulty,
		StudentAnswer:   req.StudentAnswer,
		Status:          StatusSuccess,
		ScorePercentage: &score,
		Report: &DiagnosticReport{
			Strengths:            []string{"clear working"},
			KnowledgeGaps:        f.evalGaps,
			ConstructiveFeedback: "Check your signs.",
		},
		NextStep: &NextStepRecommendation{Action: ActionReview, FocusTopics: f.evalGaps},
	}, nil
}

func (f *fakeClient) DecideChat(ctx context.Context, message string, history []ChatMessage) (*ChatDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	if f.decision != nil {
		return f.decision, nil
	}
	return &ChatDecision{Action: "direct", Reply: "Happy to help!"}, nil
}

func (f *fakeClient) FormatQuestion(ctx context.Context, rawText, topic string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formatErr != nil {
		return "", f.formatErr
	}
	return rawText + f.formatSuffix, nil
}

func (f *fakeClient) Paraphrase(ctx context.Context, content, topic string) (string, error) {
	return "spoken: " + content, nil
}

// fakeRetriever serves canned chunks per doc type.
type fakeRetriever struct {
	byDocType map[store.ChunkDocType][]*rag.Chunk
	err       error
}

func (f *fakeRetriever) FetchChunks(ctx context.Context, topic string, docType store.ChunkDocType, topN int) ([]*rag.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	chunks := f.byDocType[docType]
	if len(chunks) > topN {
		chunks = chunks[:topN]
	}
	return chunks, nil
}

func questionChunks(n int) []*rag.Chunk {
	chunks := make([]*rag.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, &rag.Chunk{
			ID:     int32(i + 1),
			UID:    "q" + string(rune('a'+i)),
			Source: "2019-p1.pdf",
			Text:   "Solve question number " + string(rune('1'+i)),
			Score:  float64(n - i),
		})
	}
	return chunks
}

func newTestOrchestrator(t *testing.T, client *fakeClient, retriever rag.Retriever) *Orchestrator {
	t.Helper()
	if retriever == nil {
		retriever = &fakeRetriever{byDocType: map[store.ChunkDocType][]*rag.Chunk{
			store.ChunkDocTypeCurriculum:    {{ID: 1, UID: "c1", Source: "notes.md", Text: "Curriculum text", Score: 1}},
			store.ChunkDocTypePaper:         questionChunks(3),
			store.ChunkDocTypeMarkingScheme: {{ID: 9, UID: "m1", Source: "2019-p1.pdf", Text: "Award 1 mark per step", Score: 1}},
		}}
	}
	o, err := NewOrchestrator(OrchestratorOptions{
		Teaching:   NewTeachingSession(client, retriever, nil, 5),
		Assessment: NewAssessmentSession(client, retriever, nil),
		Router:     NewChatRouter(nil),
		Client:     client,
	})
	require.NoError(t, err)
	return o
}

func TestCreateSession(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)

	s, err := o.CreateSession(context.Background(), "Quadratic Equations", "intermediate", "")
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, s.State)
	assert.Equal(t, DifficultyIntermediate, s.Difficulty)
	assert.NotEmpty(t, s.ID)

	_, err = o.CreateSession(context.Background(), "  ", "", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRouteTeachingIntent(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)
	s, err := o.CreateSession(context.Background(), "Quadratic Equations", "", "")
	require.NoError(t, err)

	reply, agentUsed, err := o.Route(context.Background(), s.ID, "Can you explain quadratic equations?")
	require.NoError(t, err)
	assert.Equal(t, AgentTeaching, agentUsed)
	assert.Contains(t, reply, "quadratic equations")

	got, err := o.GetSession(s.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 2, "one route call appends exactly user + assistant")
	assert.Equal(t, RoleUser, got.History[0].Role)
	assert.Equal(t, RoleAssistant, got.History[1].Role)
	assert.Equal(t, StateAssessment, got.State, "a produced lesson moves the loop to assessment")
	require.NotNil(t, got.CurrentLesson)
	assert.Equal(t, StatusSuccess, got.CurrentLesson.Status)
}

func TestRouteAssessmentIntent(t *testing.T) {
	client := &fakeClient{evalScore: 70, evalGaps: []string{"discriminant"}}
	o := newTestOrchestrator(t, client, nil)
	s, err := o.CreateSession(context.Background(), "Quadratic Equations", "", "")
	require.NoError(t, err)

	_, _, err = o.Route(context.Background(), s.ID, "Teach me quadratic equations")
	require.NoError(t, err)
	_, err = o.IssueQuestions(context.Background(), s.ID, 1)
	require.NoError(t, err)

	reply, agentUsed, err := o.Route(context.Background(), s.ID, "My answer is x=3")
	require.NoError(t, err)
	assert.Equal(t, AgentAssessment, agentUsed)
	assert.Contains(t, reply, "Score: 70%")

	got, err := o.GetSession(s.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	result := got.Results[0]
	assert.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.Report)
	assert.NotEmpty(t, result.Report.ConstructiveFeedback)
	assert.Equal(t, StateAnalysis, got.State, "all issued questions answered")
	assert.Len(t, got.History, 4)
}

func TestRouteAnswerWithoutOpenQuestion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s, err := o.CreateSession(context.Background(), "Vectors", "", "")
	require.NoError(t, err)

	// "My answer is ..." without an open question is not a submission.
	_, agentUsed, err := o.Route(context.Background(), s.ID, "My answer is x=3")
	require.NoError(t, err)
	assert.NotEqual(t, AgentAssessment, agentUsed)
}

func TestRouteLessonFailureStaysInTeaching(t *testing.T) {
	client := &fakeClient{lessonErr: context.DeadlineExceeded}
	o := newTestOrchestrator(t, client, nil)
	s, err := o.CreateSession(context.Background(), "Vectors", "", "")
	require.NoError(t, err)

	reply, agentUsed, err := o.Route(context.Background(), s.ID, "Please explain vectors")
	require.NoError(t, err, "capability failure is carried as data")
	assert.Equal(t, AgentError, agentUsed)
	assert.NotEmpty(t, reply)

	got, err := o.GetSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateTeaching, got.State, "state must not advance past teaching")
	assert.Nil(t, got.CurrentLesson)
	assert.Len(t, got.History, 2, "failed turns still append user + reply")
}

func TestRouteHistoryMonotonic(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s, err := o.CreateSession(context.Background(), "Probability", "", "")
	require.NoError(t, err)

	var lastLen int
	var firstTurn string
	for i, msg := range []string{"hello", "explain probability", "thanks"} {
		_, _, err := o.Route(context.Background(), s.ID, msg)
		require.NoError(t, err)

		got, err := o.GetSession(s.ID)
		require.NoError(t, err)
		assert.Greater(t, len(got.History), lastLen, "history length is monotonically increasing")
		lastLen = len(got.History)
		if i == 0 {
			firstTurn = got.History[0].Content
		} else {
			assert.Equal(t, firstTurn, got.History[0].Content, "existing turns never reorder")
		}
	}
}

func TestRouteCompletedSessionRejected(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s, err := o.CreateSession(context.Background(), "Vectors", "", "")
	require.NoError(t, err)
	_, err = o.EndSession(context.Background(), s.ID)
	require.NoError(t, err)

	_, _, err = o.Route(context.Background(), s.ID, "hello")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRouteUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	_, _, err := o.Route(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAdvanceFollowsTransitionTable(t *testing.T) {
	client := &fakeClient{evalScore: 40, evalGaps: []string{"chain rule"}}
	o := newTestOrchestrator(t, client, nil)
	ctx := context.Background()
	created, err := o.CreateSession(ctx, "Differentiation", "", "")
	require.NoError(t, err)

	// INITIALIZED -> TEACHING
	s, err := o.Advance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateTeaching, s.State)

	// TEACHING -> ASSESSMENT requires a produced lesson.
	_, err = o.Advance(ctx, created.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	s, err = o.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateTeaching, s.State, "failed advance leaves state unchanged")

	_, _, err = o.Route(ctx, created.ID, "explain differentiation please")
	require.NoError(t, err)
	s, err = o.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAssessment, s.State)

	// ASSESSMENT -> ANALYSIS requires a submitted answer.
	_, err = o.Advance(ctx, created.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = o.IssueQuestions(ctx, created.ID, 1)
	require.NoError(t, err)
	_, _, err = o.Route(ctx, created.ID, "my answer is y=2x")
	require.NoError(t, err)

	// ANALYSIS -> FEEDBACK synthesizes the diagnostic.
	s, err = o.Advance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFeedback, s.State)
	require.NotNil(t, s.LatestReport)
	assert.Equal(t, 0.4, s.MasteryEstimate)

	// FEEDBACK below threshold -> new TEACHING cycle, difficulty stepped down.
	s, err = o.Advance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateTeaching, s.State)
	assert.Equal(t, DifficultyFoundational, s.Difficulty)
	assert.Equal(t, []string{"chain rule"}, s.FocusTopics)
	assert.Equal(t, 1, s.CycleCount)
	assert.Nil(t, s.CurrentLesson)
	assert.Empty(t, s.Results)
}

func TestAdvanceFromCompletedFails(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s, err := o.CreateSession(context.Background(), "Vectors", "", "")
	require.NoError(t, err)
	_, err = o.EndSession(context.Background(), s.ID)
	require.NoError(t, err)

	_, err = o.Advance(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := o.GetSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)
}

func TestFeedbackBoundaryInclusive(t *testing.T) {
	client := &fakeClient{evalScore: 85}
	o := newTestOrchestrator(t, client, nil)
	ctx := context.Background()
	created, err := o.CreateSession(ctx, "Integration", "", "")
	require.NoError(t, err)

	_, _, err = o.Route(ctx, created.ID, "teach me integration")
	require.NoError(t, err)
	_, err = o.IssueQuestions(ctx, created.ID, 1)
	require.NoError(t, err)
	_, _, err = o.Route(ctx, created.ID, "the answer is 42")
	require.NoError(t, err)

	s, err := o.Advance(ctx, created.ID) // ANALYSIS -> FEEDBACK
	require.NoError(t, err)
	assert.Equal(t, 0.85, s.MasteryEstimate)

	s, err = o.Advance(ctx, created.ID) // FEEDBACK -> COMPLETED at the boundary
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State)
}

func TestProcessFeedbackLoopPure(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s := &Session{Topic: "Trigonometry", Difficulty: DifficultyIntermediate, MasteryEstimate: 0.42}
	report := &DiagnosticReport{KnowledgeGaps: []string{"sine rule", "cosine rule"}}

	first := o.ProcessFeedbackLoop(s, report)
	second := o.ProcessFeedbackLoop(s, report)

	assert.Equal(t, first, second)
	assert.Equal(t, DifficultyFoundational, first.Difficulty)
	assert.False(t, first.Completed)
	assert.Equal(t, []string{"sine rule", "cosine rule"}, first.FocusTopics)

	// Inputs are not mutated.
	assert.Equal(t, DifficultyIntermediate, s.Difficulty)
	assert.Equal(t, []string{"sine rule", "cosine rule"}, report.KnowledgeGaps)
}

func TestProcessFeedbackLoopHoldsMidBand(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s := &Session{Topic: "Trigonometry", Difficulty: DifficultyIntermediate, MasteryEstimate: 0.7}

	directive := o.ProcessFeedbackLoop(s, nil)
	assert.Equal(t, DifficultyIntermediate, directive.Difficulty)
	assert.False(t, directive.Completed)
}

func TestIssueQuestionsContentUnavailable(t *testing.T) {
	retriever := &fakeRetriever{byDocType: map[store.ChunkDocType][]*rag.Chunk{
		store.ChunkDocTypeCurriculum: {{ID: 1, UID: "c1", Source: "notes.md", Text: "text", Score: 1}},
		// No paper chunks at all.
	}}
	o := newTestOrchestrator(t, &fakeClient{}, retriever)
	ctx := context.Background()
	s, err := o.CreateSession(ctx, "Calculus", "", "")
	require.NoError(t, err)
	_, _, err = o.Route(ctx, s.ID, "teach me calculus")
	require.NoError(t, err)

	_, err = o.IssueQuestions(ctx, s.ID, 3)
	assert.ErrorIs(t, err, ErrContentUnavailable)

	got, err := o.GetSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAssessment, got.State, "starvation never advances the loop")
	assert.Empty(t, got.OpenQuestions)
}

func TestIssueQuestionsWrongState(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	s, err := o.CreateSession(context.Background(), "Calculus", "", "")
	require.NoError(t, err)

	_, err = o.IssueQuestions(context.Background(), s.ID, 3)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionsIsolated(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	ctx := context.Background()
	a, err := o.CreateSession(ctx, "Topic A", "", "")
	require.NoError(t, err)
	b, err := o.CreateSession(ctx, "Topic B", "", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = o.Route(ctx, a.ID, "hello there")
		}()
		go func() {
			defer wg.Done()
			_, _, _ = o.Route(ctx, b.ID, "hello there")
		}()
	}
	wg.Wait()

	gotA, err := o.GetSession(a.ID)
	require.NoError(t, err)
	gotB, err := o.GetSession(b.ID)
	require.NoError(t, err)
	assert.Len(t, gotA.History, 8)
	assert.Len(t, gotB.History, 8)
	assert.Equal(t, "Topic A", gotA.Topic)
	assert.Equal(t, "Topic B", gotB.Topic)
}

func TestMasteryLabelFollowsThreshold(t *testing.T) {
	s := &Session{MasteryEstimate: 0.8}
	assert.Equal(t, "developing", s.MasteryLabel(0.85))
	assert.Equal(t, "mastered", s.MasteryLabel(0.75))

	s.MasteryEstimate = 0.4
	assert.Equal(t, "emerging", s.MasteryLabel(0.85))

	// out-of-range thresholds fall back to the default band
	s.MasteryEstimate = 0.85
	assert.Equal(t, "mastered", s.MasteryLabel(0))
}
