package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/eduloop/eduloop/plugin/ai/cache"
	"github.com/eduloop/eduloop/plugin/ai/rag"
	"github.com/eduloop/eduloop/plugin/ai/timeout"
	"github.com/eduloop/eduloop/store"
)

// TeachingSession produces grounded lessons. Stateless; all per-student
// state lives in the Session owned by the orchestrator.
type TeachingSession struct {
	client    Client
	retriever rag.Retriever
	cache     cache.Service
	topN      int
}

// NewTeachingSession creates a teaching session. cache may be nil.
func NewTeachingSession(client Client, retriever rag.Retriever, cacheSvc cache.Service, topN int) *TeachingSession {
	if topN <= 0 {
		topN = 5
	}
	return &TeachingSession{
		client:    client,
		retriever: retriever,
		cache:     cacheSvc,
		topN:      topN,
	}
}

// GenerateLesson retrieves grounding chunks and invokes the teaching
// capability. It never returns a generation failure as an error: on
// capability failure the Lesson carries Status error and the upstream
// message, and the caller decides whether to retry. Only context
// cancellation surfaces as an error.
func (t *TeachingSession) GenerateLesson(ctx context.Context, session *Session) (*Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := t.lessonCacheKey(session)
	if t.cache != nil {
		if raw, ok := t.cache.Get(cacheKey); ok {
			var cached Lesson
			if err := json.Unmarshal(raw, &cached); err == nil {
				slog.Debug("lesson served from cache", "topic", session.Topic)
				return &cached, nil
			}
		}
	}

	grounding := t.fetchGrounding(ctx, session.Topic)

	req := &LessonRequest{
		Topic:          session.Topic,
		Level:          session.Level,
		StudentProfile: session.StudentProfile,
		FocusTopics:    session.FocusTopics,
		Grounding:      grounding,
	}

	lesson, err := CallWithTimeout(ctx, "generate_lesson", timeout.LessonTimeout, func(ctx context.Context) (*Lesson, error) {
		return t.client.GenerateLesson(ctx, req)
	})
	if err != nil {
		slog.Warn("lesson generation failed, returning error lesson",
			"topic", session.Topic,
			"error", err)
		return &Lesson{
			ID:        "lesson-" + shortuuid.New(),
			Topic:     session.Topic,
			Status:    StatusError,
			Error:     err.Error(),
			CreatedAt: time.Now(),
		}, nil
	}

	if t.cache != nil {
		if raw, err := json.Marshal(lesson); err == nil {
			t.cache.Set(cacheKey, raw, 10*time.Minute)
		}
	}
	return lesson, nil
}

// The topic stays in plain text so InvalidateLessons can match it with a
// prefix wildcard; the remaining inputs are hashed.
func (t *TeachingSession) lessonCacheKey(session *Session) string {
	parts := append([]string{session.Level, string(session.Difficulty)}, session.FocusTopics...)
	return cache.Key("lesson:"+session.Topic, parts...)
}

// InvalidateLessons drops every cached lesson for the topic and returns the
// number removed. A reteach cycle regenerates instead of replaying the
// cached lesson.
func (t *TeachingSession) InvalidateLessons(topic string) int {
	if t.cache == nil {
		return 0
	}
	return t.cache.Invalidate("lesson:" + topic + ":*")
}

// fetchGrounding is best-effort: an empty or failed retrieval produces an
// ungrounded lesson rather than no lesson. Chunks are passed to the
// capability in descending relevance order with deterministic tie-breaks.
func (t *TeachingSession) fetchGrounding(ctx context.Context, topic string) []GroundingChunk {
	if t.retriever == nil {
		return nil
	}

	chunks, err := t.retriever.FetchChunks(ctx, topic, store.ChunkDocTypeCurriculum, t.topN)
	if err != nil {
		slog.Warn("grounding retrieval failed, generating ungrounded lesson",
			"topic", topic,
			"error", err)
		return nil
	}

	grounding := make([]GroundingChunk, 0, len(chunks))
	for _, c := range chunks {
		grounding = append(grounding, GroundingChunk{
			Source: c.Source,
			Text:   c.Text,
			Score:  c.Score,
		})
	}
	return grounding
}
