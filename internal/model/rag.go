package model

const (
	RAGSourceChat     = "CHAT"
	RAGSourceBookmark = "BOOKMARK"
	RAGSourcePage     = "PAGE"
	RAGSourceLearning = "LEARNING"
	RAGSourceContext  = "CONTEXT"
)

// RAGResult is one retrieved snippet. RelevanceScore is cosine similarity on
// the vector path and a fixed constant on the keyword fallback; scores are
// only comparable within a single response.
type RAGResult struct {
	Content        string            `json:"content"`
	Source         string            `json:"source"`
	RelevanceScore float64           `json:"relevance_score"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RAGContext is the assembled, token-bounded context for one query.
type RAGContext struct {
	Results         []RAGResult `json:"results"`
	TotalTokensUsed int         `json:"total_tokens_used"`
	AvailableTokens int         `json:"available_tokens"`
	Truncated       bool        `json:"truncated"`
}
