package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduloop/eduloop/plugin/ai/cache"
	"github.com/eduloop/eduloop/plugin/ai/rag"
	"github.com/eduloop/eduloop/store"
)

func TestGenerateLessonGroundedInOrder(t *testing.T) {
	client := &fakeClient{}
	retriever := &fakeRetriever{byDocType: map[store.ChunkDocType][]*rag.Chunk{
		store.ChunkDocTypeCurriculum: {
			{ID: 1, UID: "c1", Source: "a.md", Text: "best match", Score: 0.9},
			{ID: 2, UID: "c2", Source: "b.md", Text: "good match", Score: 0.7},
			{ID: 3, UID: "c3", Source: "c.md", Text: "weak match", Score: 0.2},
		},
	}}
	ts := NewTeachingSession(client, retriever, nil, 5)

	lesson, err := ts.GenerateLesson(context.Background(), &Session{Topic: "Vectors", Level: "intermediate"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, lesson.Status)
	assert.Equal(t, 3, lesson.GroundingChunksUsed)

	require.NotNil(t, client.capturedReq)
	grounding := client.capturedReq.Grounding
	require.Len(t, grounding, 3)
	for i := 1; i < len(grounding); i++ {
		assert.GreaterOrEqual(t, grounding[i-1].Score, grounding[i].Score,
			"grounding must arrive in descending relevance order")
	}
}

func TestGenerateLessonFailureCarriedAsData(t *testing.T) {
	client := &fakeClient{lessonErr: context.DeadlineExceeded}
	ts := NewTeachingSession(client, &fakeRetriever{}, nil, 5)

	lesson, err := ts.GenerateLesson(context.Background(), &Session{Topic: "Vectors"})
	require.NoError(t, err, "generation failure is data, not an error")
	assert.Equal(t, StatusError, lesson.Status)
	assert.NotEmpty(t, lesson.Error)
	assert.Empty(t, lesson.ContentBlocks)
}

func TestGenerateLessonRetrievalFailureDegrades(t *testing.T) {
	client := &fakeClient{}
	ts := NewTeachingSession(client, &fakeRetriever{err: context.DeadlineExceeded}, nil, 5)

	lesson, err := ts.GenerateLesson(context.Background(), &Session{Topic: "Vectors"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, lesson.Status, "an ungrounded lesson beats no lesson")
	assert.Equal(t, 0, lesson.GroundingChunksUsed)
}

func TestGenerateLessonCached(t *testing.T) {
	client := &fakeClient{}
	ts := NewTeachingSession(client, &fakeRetriever{}, cache.NewLRU(10, time.Minute), 5)
	session := &Session{Topic: "Vectors", Level: "intermediate", Difficulty: DifficultyIntermediate}

	first, err := ts.GenerateLesson(context.Background(), session)
	require.NoError(t, err)
	second, err := ts.GenerateLesson(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, client.lessonCalls, "identical request is served from cache")
	assert.Equal(t, first.ID, second.ID)

	// A different difficulty misses the cache.
	session.Difficulty = DifficultyAdvanced
	_, err = ts.GenerateLesson(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 2, client.lessonCalls)
}

func TestInvalidateLessonsByTopic(t *testing.T) {
	client := &fakeClient{}
	ts := NewTeachingSession(client, &fakeRetriever{}, cache.NewLRU(10, time.Minute), 5)
	vectors := &Session{Topic: "Vectors", Level: "intermediate", Difficulty: DifficultyIntermediate}
	calculus := &Session{Topic: "Calculus", Level: "intermediate", Difficulty: DifficultyIntermediate}

	_, err := ts.GenerateLesson(context.Background(), vectors)
	require.NoError(t, err)
	_, err = ts.GenerateLesson(context.Background(), calculus)
	require.NoError(t, err)
	require.Equal(t, 2, client.lessonCalls)

	assert.Equal(t, 0, ts.InvalidateLessons("Statistics"))
	assert.Equal(t, 1, ts.InvalidateLessons("Vectors"))

	// only the invalidated topic regenerates
	_, err = ts.GenerateLesson(context.Background(), vectors)
	require.NoError(t, err)
	_, err = ts.GenerateLesson(context.Background(), calculus)
	require.NoError(t, err)
	assert.Equal(t, 3, client.lessonCalls)
}

func TestInvalidateLessonsWithoutCache(t *testing.T) {
	ts := NewTeachingSession(&fakeClient{}, &fakeRetriever{}, nil, 5)
	assert.Equal(t, 0, ts.InvalidateLessons("Vectors"))
}
