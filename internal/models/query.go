package models

// RoleAll is the sentinel role value that disables role filtering, same as an empty role.
const RoleAll = "(all)"

// QueryOptions are per-query parameters. Zero values fall back to configured defaults.
type QueryOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	K           int      `json:"k,omitempty"`
	Role        string   `json:"role,omitempty"`
}

// RetrievedChunk is one retrieval hit. Rank is the 1-based position within a
// single retrieval call; it seeds the [S{rank}] citation token for that call
// only and must not be persisted as a permanent identifier.
type RetrievedChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"` // normalized relevance in [0,1], 1 = most relevant
	Rank  int     `json:"rank"`
}

// RetrievalTrace summarizes one retrieved chunk for inspection and debugging.
// It is returned alongside the answer, never shown as the primary answer.
type RetrievalTrace struct {
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Chunk   int     `json:"chunk"`
	Page    int     `json:"page,omitempty"`
	Section string  `json:"section,omitempty"`
}

// QueryResult is the final answer, the cited source references, and the retrieval trace.
type QueryResult struct {
	Answer    string           `json:"answer"`
	Sources   []string         `json:"sources"`
	Retrieval []RetrievalTrace `json:"retrieval"`
}

// TraceRetrieval serializes retrieved chunks into the inspection trace.
func TraceRetrieval(retrieved []RetrievedChunk) []RetrievalTrace {
	out := make([]RetrievalTrace, len(retrieved))
	for i, r := range retrieved {
		out[i] = RetrievalTrace{
			Rank:    r.Rank,
			Score:   r.Score,
			Source:  r.Chunk.Metadata.Source,
			Chunk:   r.Chunk.Metadata.Chunk,
			Page:    r.Chunk.Metadata.Page,
			Section: r.Chunk.Metadata.Section,
		}
	}
	return out
}
