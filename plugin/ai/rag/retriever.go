package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/eduloop/eduloop/plugin/ai/timeout"
	"github.com/eduloop/eduloop/store"
	"github.com/eduloop/eduloop/store/db/sqlite"
)

// storeRetriever retrieves chunks from the store. The keyword path always
// runs; the vector path runs when an embedder is configured and the driver
// supports it.
type storeRetriever struct {
	store    ChunkStore
	embedder Embedder
	weights  FusionWeights
}

// NewRetriever creates a store-backed Retriever. embedder may be nil.
func NewRetriever(s ChunkStore, embedder Embedder) Retriever {
	return &storeRetriever{
		store:    s,
		embedder: embedder,
		weights:  DefaultFusionWeights(),
	}
}

func (r *storeRetriever) FetchChunks(ctx context.Context, topic string, docType store.ChunkDocType, topN int) ([]*Chunk, error) {
	if topN <= 0 {
		topN = 5
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.RetrievalTimeout)
	defer cancel()

	keywordResults, err := r.keywordSearch(ctx, topic, docType, topN*4)
	if err != nil {
		return nil, err
	}

	vectorResults := r.vectorSearch(ctx, topic, docType, topN*4)

	var fused []*Chunk
	if len(vectorResults) > 0 {
		fused = FuseWithRRF(keywordResults, vectorResults, r.weights)
	} else {
		fused = keywordResults
		SortChunks(fused)
	}

	if len(fused) > topN {
		fused = fused[:topN]
	}
	return fused, nil
}

func (r *storeRetriever) keywordSearch(ctx context.Context, topic string, docType store.ChunkDocType, limit int) ([]*Chunk, error) {
	rows, err := r.store.ListChunks(ctx, &store.FindChunk{
		DocType: &docType,
		Keyword: &topic,
		Limit:   &limit,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*Chunk, 0, len(rows))
	for _, row := range rows {
		c := fromStoreChunk(row)
		c.Score = lexicalScore(topic, row)
		results = append(results, c)
	}
	SortChunks(results)
	return results, nil
}

// vectorSearch is best-effort: failures degrade to keyword-only retrieval.
func (r *storeRetriever) vectorSearch(ctx context.Context, topic string, docType store.ChunkDocType, limit int) []*Chunk {
	if r.embedder == nil {
		return nil
	}

	embedding, err := r.embedder.Embed(ctx, topic)
	if err != nil {
		slog.Warn("failed to embed topic, keyword-only retrieval", "topic", topic, "error", err)
		return nil
	}

	rows, similarities, err := r.store.SearchChunksByVector(ctx, embedding, docType, limit)
	if err != nil {
		if !errors.Is(err, sqlite.ErrSQLiteVectorNotSupported) {
			slog.Warn("vector search failed, keyword-only retrieval", "topic", topic, "error", err)
		}
		return nil
	}

	results := make([]*Chunk, 0, len(rows))
	for i, row := range rows {
		c := fromStoreChunk(row)
		if i < len(similarities) {
			c.Score = float64(similarities[i])
		}
		results = append(results, c)
	}
	return results
}

// lexicalScore measures token overlap between the topic and the chunk's
// topics and text. Topic tag hits weigh more than body hits.
func lexicalScore(topic string, c *store.Chunk) float64 {
	tokens := tokenize(topic)
	if len(tokens) == 0 {
		return 0
	}

	topicTags := strings.ToLower(c.Topics)
	body := strings.ToLower(c.Text)

	var score float64
	for _, token := range tokens {
		if strings.Contains(topicTags, token) {
			score += 2
		}
		if strings.Contains(body, token) {
			score++
		}
	}
	return score / float64(len(tokens))
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
