package model

const (
	VersionStatusPending   = "pending"
	VersionStatusFinalized = "finalized"
)

// ContentVersion is one captured visit of a URL. Many versions may exist per
// URL over time; at most one finalized version per URL is treated as current.
type ContentVersion struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	RawContent     string `json:"raw_content"`
	RawContentHash string `json:"raw_content_hash"`
	SummaryContent string `json:"summary_content"`
	SummaryHash    string `json:"summary_hash"`
	// Embedding holds the populated slot, if any; ActiveDimension says which
	// storage slot it came from. Zero means no embedding yet.
	Embedding       []float32 `json:"embedding,omitempty"`
	ActiveDimension int       `json:"active_embedding_dimension"`
	VisitCount      int       `json:"visit_count"`
	Status          string    `json:"status"`
	Ctime           int64     `json:"ctime"`
	LastProcessedAt int64     `json:"last_processed_at"`
}
