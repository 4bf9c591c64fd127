package commonModels

import "time"

// Chunk is one segment of a source document. Index and TotalInGroup allow the original order to be rebuilt.
type Chunk struct {
	Content      string `json:"content"`
	Index        int    `json:"index"`
	TotalInGroup int    `json:"total_in_group"`
}

type PassageMetadata struct {
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// StoredPassage is what ingestion writes to the document index, one per Chunk.
type StoredPassage struct {
	Id        string          `json:"id"`
	Content   string          `json:"content"`
	Embedding []float32       `json:"-"`
	Metadata  PassageMetadata `json:"metadata"`
}

// Passage is a search hit. Distance is cosine distance, lower is closer.
type Passage struct {
	Id         string  `json:"id"`
	Content    string  `json:"content"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}

func (p Passage) Similarity() float64 {
	return 1 - p.Distance
}

// SourceDocument is what a document source hands to ingestion.
type SourceDocument struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Raw      []byte `json:"-"`
	// Path is set when the bytes were spooled to disk by the upload handler.
	Path string `json:"path,omitempty"`
}

type IngestStatus string

const (
	IngestStatusOK    IngestStatus = "ok"
	IngestStatusError IngestStatus = "error"
)

type IngestResult struct {
	Filename   string       `json:"filename"`
	Status     IngestStatus `json:"status"`
	Chunks     int          `json:"chunks"`
	Error      string       `json:"error,omitempty"`
	IngestedAt time.Time    `json:"ingested_at"`
}

type DocType string

const (
	PDF      DocType = "PDF"
	DOCX     DocType = "DOCX"
	ODT      DocType = "ODT"
	RTF      DocType = "RTF"
	TXT      DocType = "TXT"
	MARKDOWN DocType = "MARKDOWN"
	XLSX     DocType = "XLSX"
	ERR      DocType = "ERROR"
)
