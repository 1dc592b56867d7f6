package model

// ChatMessage is a stored conversation turn, searchable by embedding.
type ChatMessage struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	Ctime     int64     `json:"ctime"`
}

// Bookmark is a user-saved page, searchable by embedding.
type Bookmark struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Note      string    `json:"note"`
	Embedding []float32 `json:"-"`
	Ctime     int64     `json:"ctime"`
}

// LearningNote has no embedding index; it is only reachable through the
// keyword path.
type LearningNote struct {
	ID      string `json:"id"`
	Word    string `json:"word"`
	Content string `json:"content"`
	Ctime   int64  `json:"ctime"`
}

// Scored rows returned by per-source searches. Similarity is cosine
// similarity on the vector path and 0 on the keyword path; the retrieval
// layer assigns the fallback score itself.

type ScoredPage struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	Ctime      int64   `json:"ctime"`
	Similarity float64 `json:"similarity"`
}

type ScoredChatMessage struct {
	ChatMessage
	Similarity float64 `json:"similarity"`
}

type ScoredBookmark struct {
	Bookmark
	Similarity float64 `json:"similarity"`
}
