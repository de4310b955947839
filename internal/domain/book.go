package domain

import (
	"time"
)

// IndexName is the search index holding book documents. The index is the
// sole store of record state; there is no separate database.
const IndexName = "books"

// Book is the canonical searchable record. ID is the engine-assigned
// document identifier and is not part of the indexed body.
type Book struct {
	ID          string    `json:"-"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Publisher   string    `json:"publisher"`
	ISBN        string    `json:"isbn"`
	Description string    `json:"description"`
	Categories  []string  `json:"categories"`
	PublishDate time.Time `json:"publish_date"`
	PageCount   int       `json:"page_count"`
	Rating      float64   `json:"rating"`
}

// Sortable fields accepted by the search endpoint.
const (
	SortByTitle  = "title"
	SortByAuthor = "author"
	SortByISBN   = "isbn"
)

// IsValidSortField reports whether the given sortBy value is accepted.
func IsValidSortField(s string) bool {
	switch s {
	case SortByTitle, SortByAuthor, SortByISBN:
		return true
	}
	return false
}

// IsValidSortOrder reports whether the given sortOrder value is accepted.
func IsValidSortOrder(s string) bool {
	return s == "asc" || s == "desc"
}

// SearchParams holds all parameters for an advanced book search. Free-text
// inputs are independently optional; blank values contribute nothing to the
// query.
type SearchParams struct {
	Title       string
	Author      string
	ISBN        string
	Description string
	Categories  []string
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// BookView is the projection returned by the search endpoint.
type BookView struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	ISBN        string   `json:"isbn"`
	Categories  []string `json:"categories"`
	Description string   `json:"description"`
}

// Suggestion is a lightweight "did you mean" record produced by the
// fallback query when primary results are sparse.
type Suggestion struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// SearchResult is the response of the advanced search: total hit count,
// projected books, and fallback suggestions (empty, never nil).
type SearchResult struct {
	Total       int64        `json:"total"`
	Books       []BookView   `json:"books"`
	Suggestions []Suggestion `json:"suggestions"`
}

// TitleSuggestion is the projection returned by the suggestion endpoint.
type TitleSuggestion struct {
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Rating float64 `json:"rating"`
}

// FacetBucket is one term bucket with its nested average-rating metric.
type FacetBucket struct {
	Key       string  `json:"key"`
	AvgRating float64 `json:"avg_rating"`
}

// FacetResult holds an ordered facet listing plus the total number of
// distinct keys, which is independent of the bucket cap.
type FacetResult struct {
	Total   int64         `json:"total"`
	Buckets []FacetBucket `json:"buckets"`
}

// TopBook is the projection returned by the top-rated listing.
type TopBook struct {
	ISBN       string   `json:"isbn"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Publisher  string   `json:"publisher"`
	Categories []string `json:"categories"`
	Rating     float64  `json:"rating"`
}
