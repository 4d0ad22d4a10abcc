package rag

import "sort"

// RRFDampingFactor is the k in RRF(d) = Σ weight_i / (k + rank_i(d)).
// k = 60 is a common default.
const RRFDampingFactor = 60

// FusionWeights controls the contribution of each result list.
type FusionWeights struct {
	Keyword float64
	Vector  float64
}

// DefaultFusionWeights weights both paths equally.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Keyword: 0.5, Vector: 0.5}
}

// FuseWithRRF fuses keyword and vector result lists using Reciprocal Rank
// Fusion. Input lists must already be in rank order. The fused score
// replaces each chunk's Score.
func FuseWithRRF(keywordResults, vectorResults []*Chunk, weights FusionWeights) []*Chunk {
	scoreMap := make(map[string]float64)
	chunkMap := make(map[string]*Chunk)

	for rank, c := range keywordResults {
		scoreMap[c.UID] += weights.Keyword / float64(RRFDampingFactor+rank+1)
		if _, ok := chunkMap[c.UID]; !ok {
			chunkMap[c.UID] = c
		}
	}
	for rank, c := range vectorResults {
		scoreMap[c.UID] += weights.Vector / float64(RRFDampingFactor+rank+1)
		if _, ok := chunkMap[c.UID]; !ok {
			chunkMap[c.UID] = c
		}
	}

	fused := make([]*Chunk, 0, len(chunkMap))
	for uid, c := range chunkMap {
		merged := *c
		merged.Score = scoreMap[uid]
		fused = append(fused, &merged)
	}
	SortChunks(fused)
	return fused
}

// SortChunks orders chunks by score descending, breaking ties by source
// ascending then ID ascending so identical corpora always retrieve in the
// same order.
func SortChunks(chunks []*Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].Source != chunks[j].Source {
			return chunks[i].Source < chunks[j].Source
		}
		return chunks[i].ID < chunks[j].ID
	})
}
