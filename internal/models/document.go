package models

// Metadata identifies where a document came from and who contributed it.
// By is attached by the ingestion orchestrator at insertion time, never
// during generation.
type Metadata struct {
	Source string `json:"source"`
	By     string `json:"by,omitempty"`
}

// Document is the unit of ingestion: one chunk of prose plus its origin.
// Documents are produced by the generator, consumed exactly once, and never
// mutated.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// StoredRecord is the row shape persisted to the vector store.
type StoredRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// MatchResult is one ranked entry of a retrieved context set.
type MatchResult struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata"`
}

// Message is a single turn of conversation history, passed verbatim to the
// completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
