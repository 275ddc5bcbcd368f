// Package article defines the records and contracts shared by the scrape pipeline,
// the repositories and the HTTP API.
package article

// Article is a persisted headline record.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Saved       bool   `json:"saved"`
	NoteID      string `json:"note_id,omitempty"`
	Note        *Note  `json:"note,omitempty"`
}

// Note is an annotation an article may reference. Only FindByID resolves it.
type Note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Candidate is a raw record pulled out of listing markup, before any cleanup.
type Candidate struct {
	Title       string
	Description string
	LinkSuffix  string
}

// Draft is a normalized record ready to be created.
type Draft struct {
	Title       string
	Description string
	Link        string
}

// Filter selects which articles FindAll returns.
type Filter int

// Supported filters.
const (
	FilterAll Filter = iota
	FilterSaved
)

func (f Filter) String() string {
	switch f {
	case FilterSaved:
		return "saved"
	default:
		return "all"
	}
}
