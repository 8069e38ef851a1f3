package knowledge

// Document is a cleaned, chunked, metadata-tagged unit derived from one chat
// message, ready for embedding and storage. Metadata must be
// map[string]string to comply with chromem-go requirements.
type Document struct {
	ID       string            // {message_id}_chunk_{i}
	Content  string            // Cleaned chunk text
	Metadata map[string]string // author, channel, guild, timestamp, chunk position
}

// Result is a single search result.
type Result struct {
	Document Document

	// Score is the cosine similarity reported by the backend (0-1).
	Score float32

	// Distance is derived from Score as 1 - Score.
	Distance float32
}

// Stats describes the collection.
type Stats struct {
	TotalDocuments int
	CollectionName string
}
