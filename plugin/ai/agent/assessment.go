package agent

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/eduloop/eduloop/plugin/ai/cache"
	"github.com/eduloop/eduloop/plugin/ai/rag"
	"github.com/eduloop/eduloop/plugin/ai/timeout"
	"github.com/eduloop/eduloop/store"
)

// maxConcurrentFormats bounds parallel formatting calls in one batch.
const maxConcurrentFormats = 4

// AssessmentSession fetches questions, evaluates answers, and synthesizes
// diagnostics. Stateless; results belong to the session that requested them.
type AssessmentSession struct {
	client    Client
	retriever rag.Retriever
	cache     cache.Service
}

// NewAssessmentSession creates an assessment session. cache may be nil.
func NewAssessmentSession(client Client, retriever rag.Retriever, cacheSvc cache.Service) *AssessmentSession {
	return &AssessmentSession{
		client:    client,
		retriever: retriever,
		cache:     cacheSvc,
	}
}

// FetchQuestions retrieves n question chunks and pairs each with a marking
// scheme chunk from the same source when one exists. n must be at least 1.
// Zero retrieved questions is ErrContentUnavailable, never an empty success.
func (a *AssessmentSession) FetchQuestions(ctx context.Context, topic string, n int) ([]*Question, error) {
	if n < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "question count must be >= 1, got %d", n)
	}

	questionChunks, err := a.retriever.FetchChunks(ctx, topic, store.ChunkDocTypePaper, n)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve question chunks")
	}
	if len(questionChunks) == 0 {
		return nil, errors.Wrapf(ErrContentUnavailable, "no questions found for topic %q", topic)
	}

	schemeChunks, err := a.retriever.FetchChunks(ctx, topic, store.ChunkDocTypeMarkingScheme, n*2)
	if err != nil {
		// Marking schemes improve evaluation but are not required.
		slog.Warn("marking scheme retrieval failed", "topic", topic, "error", err)
		schemeChunks = nil
	}
	schemesBySource := make(map[string]*rag.Chunk, len(schemeChunks))
	for _, sc := range schemeChunks {
		if _, ok := schemesBySource[sc.Source]; !ok {
			schemesBySource[sc.Source] = sc
		}
	}

	questions := make([]*Question, 0, len(questionChunks))
	for _, qc := range questionChunks {
		q := &Question{
			ID:     qc.UID,
			Text:   qc.Text,
			Source: qc.Source,
			Score:  qc.Score,
		}
		if sc, ok := schemesBySource[qc.Source]; ok {
			q.MarkingScheme = sc.Text
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// FormatForDisplay passes raw retrieved text through the formatting
// capability to clean OCR artifacts. Formatting is cosmetic: any failure
// leaves the original text unchanged and is logged, never surfaced. Calls
// run in parallel, bounded by a semaphore.
func (a *AssessmentSession) FormatForDisplay(ctx context.Context, questions []*Question, topic string) []*Question {
	sem := semaphore.NewWeighted(maxConcurrentFormats)
	formatted := make([]*Question, len(questions))

	var wg sync.WaitGroup
	for i, q := range questions {
		copied := *q
		formatted[i] = &copied

		if err := sem.Acquire(ctx, 1); err != nil {
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)
			formatted[idx].Text, formatted[idx].Formatted = a.formatOne(ctx, questions[idx].Text, topic)
		}(i)
	}
	wg.Wait()
	return formatted
}

func (a *AssessmentSession) formatOne(ctx context.Context, rawText, topic string) (string, bool) {
	cacheKey := cache.Key("format", rawText, topic)
	if a.cache != nil {
		if raw, ok := a.cache.Get(cacheKey); ok {
			return string(raw), true
		}
	}

	cleaned, err := CallWithTimeout(ctx, "format_question", timeout.FormatTimeout, func(ctx context.Context) (string, error) {
		return a.client.FormatQuestion(ctx, rawText, topic)
	})
	if err != nil {
		slog.Warn("question formatting degraded, using raw text",
			"topic", topic,
			"error", err)
		return rawText, false
	}

	if a.cache != nil {
		a.cache.Set(cacheKey, []byte(cleaned), 0)
	}
	return cleaned, true
}

// Evaluate invokes the assessment capability for one answer. A low score is
// a valid result; only transport-level failures propagate, classified.
func (a *AssessmentSession) Evaluate(ctx context.Context, question *Question, studentAnswer, topic string, difficulty Difficulty) (*AssessmentResult, error) {
	req := &EvaluationRequest{
		Topic:         topic,
		QuestionText:  question.Text,
		StudentAnswer: studentAnswer,
		Difficulty:    difficulty,
		MarkingScheme: question.MarkingScheme,
	}
	return CallWithTimeout(ctx, "evaluate_answer", timeout.AssessTimeout, func(ctx context.Context) (*AssessmentResult, error) {
		return a.client.EvaluateAnswer(ctx, req)
	})
}

// SynthesizeDiagnostic aggregates the cycle's results into one report.
// Strengths and gaps are deduplicated by topic tag; error results contribute
// nothing. Output ordering is deterministic.
func (a *AssessmentSession) SynthesizeDiagnostic(results []*AssessmentResult) *DiagnosticReport {
	strengths := map[string]bool{}
	gaps := map[string]bool{}
	var feedback []string
	var misconceptions []string

	for _, r := range results {
		if r == nil || r.Status != StatusSuccess || r.Report == nil {
			continue
		}
		for _, s := range r.Report.Strengths {
			strengths[normalizeTag(s)] = true
		}
		for _, g := range r.Report.KnowledgeGaps {
			gaps[normalizeTag(g)] = true
		}
		if r.Report.ConstructiveFeedback != "" {
			feedback = append(feedback, r.Report.ConstructiveFeedback)
		}
		if r.Report.MisconceptionAnalysis != "" {
			misconceptions = append(misconceptions, r.Report.MisconceptionAnalysis)
		}
	}

	return &DiagnosticReport{
		Strengths:             sortedKeys(strengths),
		KnowledgeGaps:         sortedKeys(gaps),
		ConstructiveFeedback:  strings.Join(feedback, "\n\n"),
		MisconceptionAnalysis: strings.Join(misconceptions, "\n\n"),
	}
}

// MeanScore computes the mastery estimate for a cycle as the mean score of
// successful evaluations, scaled to [0,1]. Returns ok=false when no result
// carries a score.
func MeanScore(results []*AssessmentResult) (float64, bool) {
	var sum float64
	var count int
	for _, r := range results {
		if r != nil && r.Status == StatusSuccess && r.ScorePercentage != nil {
			sum += *r.ScorePercentage
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count) / 100, true
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
