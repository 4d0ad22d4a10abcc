// Package rag provides curriculum retrieval over the chunk store. It
// combines keyword matching with optional vector similarity and returns a
// deterministically ordered slice of chunks for a topic.
package rag

import (
	"context"

	"github.com/eduloop/eduloop/store"
)

// Chunk is a retrieved piece of curriculum material with its relevance score.
type Chunk struct {
	ID     int32
	UID    string
	Source string
	Text   string
	Topics string
	Score  float64
}

// Retriever fetches relevant chunks for a topic.
type Retriever interface {
	// FetchChunks returns up to topN chunks for the topic, ordered by
	// score descending, then source ascending, then ID ascending. An
	// empty result is not an error.
	FetchChunks(ctx context.Context, topic string, docType store.ChunkDocType, topN int) ([]*Chunk, error)
}

// Embedder converts text into an embedding vector. Implementations wrap the
// configured embedding model; a nil Embedder disables the vector path.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore is the subset of the store the retriever needs.
type ChunkStore interface {
	ListChunks(ctx context.Context, find *store.FindChunk) ([]*store.Chunk, error)
	SearchChunksByVector(ctx context.Context, embedding []float32, docType store.ChunkDocType, limit int) ([]*store.Chunk, []float32, error)
}

func fromStoreChunk(c *store.Chunk) *Chunk {
	return &Chunk{
		ID:     c.ID,
		UID:    c.UID,
		Source: c.Source,
		Text:   c.Text,
		Topics: c.Topics,
	}
}
