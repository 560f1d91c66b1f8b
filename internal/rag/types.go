package rag

import "time"

// QueryRequest is one retrieval question against a collection.
type QueryRequest struct {
	Collection   string `json:"-"`
	Question     string `json:"question"`
	SearchType   string `json:"search_type,omitempty"`
	AnswerFormat string `json:"answer_format,omitempty"`
	MaxSources   int    `json:"max_sources,omitempty"`

	// Timeout bounds the whole call including task polling. Zero uses the
	// client default.
	Timeout time.Duration `json:"-"`
}

// ChunkMetadata describes the source chunk a result came from.
type ChunkMetadata struct {
	PageNumber       int    `json:"page_number,omitempty"`
	ExtractionMethod string `json:"extraction_method,omitempty"`
	ChunkType        string `json:"chunk_type,omitempty"`
}

// DocumentMetadata describes the source document.
type DocumentMetadata struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	AuthorSurnames  []string `json:"author_surnames"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	DocumentType    string   `json:"document_type,omitempty"`
	HarvardCitation string   `json:"harvard_citation,omitempty"`
}

// Source is a retrieved excerpt with pre-rendered citations.
type Source struct {
	DocumentID       string           `json:"document_id"`
	ChunkID          string           `json:"chunk_id"`
	Filename         string           `json:"filename"`
	Citation         string           `json:"citation"`
	InTextCitation   string           `json:"in_text_citation"`
	Text             string           `json:"text"`
	SimilarityScore  float64          `json:"similarity_score"`
	RelevanceScore   float64          `json:"relevance_score"`
	ChunkMetadata    ChunkMetadata    `json:"chunk_metadata"`
	DocumentMetadata DocumentMetadata `json:"document_metadata"`
}

// Author returns the first surname, else the first author, else "Unknown".
func (s Source) Author() string {
	if len(s.DocumentMetadata.AuthorSurnames) > 0 && s.DocumentMetadata.AuthorSurnames[0] != "" {
		return s.DocumentMetadata.AuthorSurnames[0]
	}
	if len(s.DocumentMetadata.Authors) > 0 && s.DocumentMetadata.Authors[0] != "" {
		return s.DocumentMetadata.Authors[0]
	}
	return "Unknown"
}

// Year returns the four-digit year of the publication date, or "".
func (s Source) Year() string {
	d := s.DocumentMetadata.PublicationDate
	if len(d) >= 4 {
		return d[:4]
	}
	return d
}

// Title returns the document title, falling back to the filename.
func (s Source) Title() string {
	if s.DocumentMetadata.Title != "" {
		return s.DocumentMetadata.Title
	}
	return s.Filename
}

// QueryResponse is the answer plus ranked sources.
type QueryResponse struct {
	Answer             string   `json:"answer"`
	Sources            []Source `json:"sources"`
	QueryType          string   `json:"query_type"`
	CollectionID       string   `json:"collection_id"`
	Question           string   `json:"question"`
	ProcessingTimeMs   int      `json:"processing_time_ms,omitempty"`
	RoutingExplanation string   `json:"routing_explanation,omitempty"`
}

// Collection is a queryable document collection.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}
