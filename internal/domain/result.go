package domain

import "time"

// Backend identifies which store produced a response or item.
type Backend string

const (
	BackendStructured Backend = "structured"
	BackendSemantic   Backend = "semantic"
	// BackendComposite tags a merged item built from a structured and a
	// semantic record referring to the same title.
	BackendComposite Backend = "composite"
)

// AdapterStatus is the outcome of a single adapter invocation.
type AdapterStatus string

const (
	StatusOK    AdapterStatus = "ok"
	StatusEmpty AdapterStatus = "empty"
	StatusError AdapterStatus = "error"
)

// AdapterRequest is one backend invocation. BackendQuery carries the text
// the adapter should execute against its store; Query is the originating
// user question.
type AdapterRequest struct {
	BackendQuery string
	Query        Query
	Timeout      time.Duration
}

// ResultItem is a backend-tagged record. Source tells consumers which field
// set is populated: structured items carry rental/rating metadata, semantic
// items carry excerpt and similarity score, composite items carry both.
type ResultItem struct {
	Source Backend `json:"source"`
	Title  string  `json:"title"`

	// Structured fields
	RentalCount int    `json:"rental_count,omitempty"`
	Rating      string `json:"rating,omitempty"`
	Language    string `json:"language,omitempty"`
	ReleaseYear int    `json:"release_year,omitempty"`
	Category    string `json:"category,omitempty"`

	// Semantic fields
	Excerpt         string  `json:"excerpt,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
	Genres          string  `json:"genres,omitempty"`
	Actors          string  `json:"actors,omitempty"`
}

// AdapterResponse is the uniform result of one adapter invocation. Adapters
// never raise past their boundary; failures are carried in Status and Detail.
type AdapterResponse struct {
	Backend Backend
	Status  AdapterStatus
	Items   []ResultItem
	Detail  string
	Latency time.Duration
}

// MergedResult is the orchestrator's output for one query. If Degraded is
// true, at least one invoked adapter did not return OK and the items (possibly
// none) come from the remaining source.
type MergedResult struct {
	Items       []ResultItem `json:"items"`
	SourcesUsed []Backend    `json:"sources_used"`
	Degraded    bool         `json:"degraded"`
}

// UsedSource reports whether b contributed OK results to the merge.
func (m *MergedResult) UsedSource(b Backend) bool {
	for _, s := range m.SourcesUsed {
		if s == b {
			return true
		}
	}
	return false
}
