package engine

import (
	"context"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/query"
)

// Hit is a single search hit: the engine-assigned document identifier plus
// the (possibly projected) document.
type Hit struct {
	ID   string
	Book domain.Book
}

// Result holds the outcome of a query submission.
type Result struct {
	Total int64
	Hits  []Hit
}

// SearchEngine is the boundary to the inverted-index engine. Implementations
// execute engine-agnostic plans; they own no domain logic beyond translating
// plans to their native query language.
type SearchEngine interface {
	// Search executes a query plan and returns matching documents.
	Search(ctx context.Context, plan *query.Plan) (*Result, error)

	// Aggregate executes a facet aggregation plan. No document hits are
	// fetched; only buckets and the distinct-key count matter.
	Aggregate(ctx context.Context, plan *query.AggregationPlan) (*domain.FacetResult, error)

	// Index stores a new document and returns its engine-assigned identifier.
	Index(ctx context.Context, book *domain.Book) (string, error)

	// Update applies a partial document update by engine identifier.
	Update(ctx context.Context, id string, book *domain.Book) error

	// Delete removes a document by its engine identifier.
	Delete(ctx context.Context, id string) error
}
