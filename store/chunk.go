package store

// ChunkDocType classifies a chunk by the kind of document it came from.
type ChunkDocType string

const (
	ChunkDocTypeCurriculum    ChunkDocType = "curriculum"
	ChunkDocTypePaper         ChunkDocType = "paper"
	ChunkDocTypeMarkingScheme ChunkDocType = "marking_scheme"
)

// Chunk is a retrievable excerpt from the knowledge corpus: a curriculum
// passage, a past-paper question, or a marking scheme.
type Chunk struct {
	ID int32

	// Standard fields
	UID       string
	CreatedTs int64

	// Domain specific fields
	DocType  ChunkDocType
	Source   string
	Text     string
	Topics   string            // normalized, space-separated topic tags
	Metadata map[string]string // year, paper, detected topics
}

// FindChunk is the find criteria for chunks.
type FindChunk struct {
	ID      *int32
	UID     *string
	DocType *ChunkDocType

	// Keyword filters the text and topic tags (case-insensitive contains).
	Keyword *string

	Limit *int
}

// DeleteChunk is the delete criteria for chunks.
type DeleteChunk struct {
	ID *int32
	// DocType deletes every chunk of the given document type.
	DocType *ChunkDocType
}
