package repository

import "context"

// Chunk is one ordered text segment extracted from a knowledge source.
// Chunks are immutable once loaded; the pipeline only reads them.
type Chunk struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Text       string `json:"text"`
	Position   int    `json:"position"`
}

// KnowledgeSource loads a corpus into ordered chunks with provenance.
// Document text extraction (e.g. from PDFs) happens upstream of this
// interface; implementations only see already-textual files.
type KnowledgeSource interface {
	// Load returns the ordered chunks for the configured source paths
	Load(ctx context.Context, sources []string) ([]Chunk, error)
}

// CorpusStats summarizes a loaded corpus for run-start reporting
type CorpusStats struct {
	Files      int
	Chunks     int
	TotalWords int
}
