package entity

// RegisterUploadRequest declares an intended upload to the remote
// knowledge store.
type RegisterUploadRequest struct {
	Name          string   `json:"name"`
	MediaType     string   `json:"media_type"`
	Tags          []string `json:"tags,omitempty"`
	EnableRAG     bool     `json:"enable_rag"`
	EnableIndex   bool     `json:"enable_index"`
	KnowledgeBase string   `json:"knowledge_base,omitempty"`
}

// RegisterUploadResponse acknowledges a registration. The identifier is
// always present on success; WriteURL is set when the raw bytes must be
// pushed in a second step.
type RegisterUploadResponse struct {
	ID       string `json:"id"`
	WriteURL string `json:"write_url,omitempty"`
}
