package commonModels

// DistanceKind says how an index score should be read.
type DistanceKind string

const (
	CosineSimilarity DistanceKind = "cosine_similarity" // score in [-1,1], higher is closer
	CosineDistance   DistanceKind = "cosine_distance"   // distance in [0,1], lower is closer
	Euclidean        DistanceKind = "euclidean"         // unbounded distance
	Manhattan        DistanceKind = "manhattan"         // unbounded distance
	DotProduct       DistanceKind = "dot"               // unbounded score, higher is closer
	// RankFusion marks hybrid results whose raw score is a reciprocal rank fusion sum.
	RankFusion DistanceKind = "rrf"
)

type RetrievalMode string

const (
	ModeVector RetrievalMode = "vector"
	ModeHybrid RetrievalMode = "hybrid"
)

// ScoredChunk is a raw index hit.
type ScoredChunk struct {
	Chunk DocChunk
	Score float64
}

type RetrievedCandidate struct {
	Chunk       DocChunk     `json:"chunk"`
	RawScore    float64      `json:"raw_score"`
	Distance    DistanceKind `json:"distance"`
	Relevance   float64      `json:"relevance"`
	VectorRank  int          `json:"vector_rank,omitempty"`
	KeywordRank int          `json:"keyword_rank,omitempty"`
}

type Source struct {
	DocumentId string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Page       *int    `json:"page"`
	Preview    string  `json:"preview"`
	Relevance  float64 `json:"relevance_score"`
	ChunkIndex int     `json:"chunk_index"`
}

type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QueryRequest struct {
	Question    string
	DocumentIds []string
	MaxSources  int
	Temperature *float32
	Mode        RetrievalMode
	History     []ConversationTurn
	ImageBase64 string
}

type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Context string   `json:"context"`
	Cached  bool     `json:"cached,omitempty"`
}

type HealthStatus string

const (
	Healthy  HealthStatus = "healthy"
	Degraded HealthStatus = "degraded"
)

type IndexStats struct {
	TotalChunks        uint64       `json:"total_chunks"`
	DocumentCount      int          `json:"total_documents"`
	DocumentCountExact bool         `json:"document_count_exact"`
	Status             HealthStatus `json:"status"`
	Error              string       `json:"error,omitempty"`
}
