package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/searchify/searchify/pkg/errors"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/engine"
	"github.com/searchify/searchify/internal/query"
)

// BookService implements the business logic of the catalog: mutations
// guarded by ISBN uniqueness checks, the weighted search with suggestion
// fallback, facet listings, and the top-rated listing.
type BookService struct {
	engine engine.SearchEngine
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(eng engine.SearchEngine, logger *slog.Logger) *BookService {
	return &BookService{
		engine: eng,
		logger: logger,
	}
}

// BookInput holds the attributes of a book write operation. Field-level
// validation happens at the HTTP boundary; the service only enforces the
// cross-record ISBN invariant.
type BookInput struct {
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

func (in *BookInput) toBook() *domain.Book {
	return &domain.Book{
		Title:       in.Title,
		Author:      in.Author,
		Publisher:   in.Publisher,
		ISBN:        in.ISBN,
		Description: in.Description,
		Categories:  in.Categories,
		PublishDate: in.PublishDate,
		PageCount:   in.PageCount,
		Rating:      in.Rating,
	}
}

// findByISBN looks up a single record by exact ISBN. Returns nil when no
// record exists.
func (s *BookService) findByISBN(ctx context.Context, isbn string) (*engine.Hit, error) {
	res, err := s.engine.Search(ctx, query.BuildISBNLookup(isbn))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("lookup isbn %s: %w", isbn, err))
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	hit := res.Hits[0]
	return &hit, nil
}

// Create stores a new book after verifying no live record owns its ISBN.
func (s *BookService) Create(ctx context.Context, input *BookInput) (*domain.Book, error) {
	existing, err := s.findByISBN(ctx, input.ISBN)
	if err != nil {
		return nil, apperrors.Wrap(err, "create book")
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("book", "isbn", input.ISBN)
	}

	book := input.toBook()
	id, err := s.engine.Index(ctx, book)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create book: %w", err))
	}
	book.ID = id

	s.logger.InfoContext(ctx, "book created",
		slog.String("id", id),
		slog.String("isbn", book.ISBN),
	)

	return book, nil
}

// GetByISBN fetches a single book by its ISBN.
func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	hit, err := s.findByISBN(ctx, isbn)
	if err != nil {
		return nil, apperrors.Wrap(err, "get book")
	}
	if hit == nil {
		return nil, apperrors.NotFound("book with isbn", isbn)
	}
	book := hit.Book
	book.ID = hit.ID
	return &book, nil
}

// Update replaces the record addressed by the route ISBN. When the payload
// carries a different ISBN, a second existence check guards against
// colliding with another record. Writes go by engine identifier; the ISBN
// is not the engine's primary key.
func (s *BookService) Update(ctx context.Context, isbn string, input *BookInput) (*domain.Book, error) {
	current, err := s.findByISBN(ctx, isbn)
	if err != nil {
		return nil, apperrors.Wrap(err, "update book")
	}
	if current == nil {
		return nil, apperrors.NotFound("book with isbn", isbn)
	}

	if input.ISBN != current.Book.ISBN {
		collision, err := s.findByISBN(ctx, input.ISBN)
		if err != nil {
			return nil, apperrors.Wrap(err, "update book")
		}
		if collision != nil && collision.ID != current.ID {
			return nil, apperrors.AlreadyExists("book", "isbn", input.ISBN)
		}
	}

	book := input.toBook()
	if err := s.engine.Update(ctx, current.ID, book); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("update book: %w", err))
	}
	book.ID = current.ID

	s.logger.InfoContext(ctx, "book updated",
		slog.String("id", current.ID),
		slog.String("isbn", book.ISBN),
	)

	return book, nil
}

// Delete removes the record addressed by ISBN, resolving the engine
// identifier first.
func (s *BookService) Delete(ctx context.Context, isbn string) error {
	hit, err := s.findByISBN(ctx, isbn)
	if err != nil {
		return apperrors.Wrap(err, "delete book")
	}
	if hit == nil {
		return apperrors.NotFound("book with isbn", isbn)
	}

	if err := s.engine.Delete(ctx, hit.ID); err != nil {
		return apperrors.Internal(fmt.Errorf("delete book: %w", err))
	}

	s.logger.InfoContext(ctx, "book deleted",
		slog.String("id", hit.ID),
		slog.String("isbn", isbn),
	)

	return nil
}

// Upsert stores a book keyed by its ISBN: records with a known ISBN are
// replaced, unknown ones created. Used by the ingest event path, which has
// no notion of engine identifiers.
func (s *BookService) Upsert(ctx context.Context, input *BookInput) error {
	existing, err := s.findByISBN(ctx, input.ISBN)
	if err != nil {
		return apperrors.Wrap(err, "upsert book")
	}

	book := input.toBook()
	if existing != nil {
		if err := s.engine.Update(ctx, existing.ID, book); err != nil {
			return apperrors.Internal(fmt.Errorf("upsert book: %w", err))
		}
		return nil
	}

	if _, err := s.engine.Index(ctx, book); err != nil {
		return apperrors.Internal(fmt.Errorf("upsert book: %w", err))
	}
	return nil
}

// Search runs the weighted multi-field query and, when results are sparse
// and a title was supplied, the broader suggestion fallback.
func (s *BookService) Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	if err := validateSearchParams(params); err != nil {
		return nil, err
	}

	res, err := s.engine.Search(ctx, query.BuildBookSearch(params))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("search books: %w", err))
	}

	suggestions := []domain.Suggestion{}
	if res.Total < query.FallbackThreshold && strings.TrimSpace(params.Title) != "" {
		fallback, err := s.engine.Search(ctx, query.BuildSuggestionFallback(params.Title))
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("search suggestions: %w", err))
		}
		for _, hit := range fallback.Hits {
			suggestions = append(suggestions, domain.Suggestion{
				Title:  hit.Book.Title,
				Author: hit.Book.Author,
				ISBN:   hit.Book.ISBN,
			})
		}
	}

	books := make([]domain.BookView, 0, len(res.Hits))
	for _, hit := range res.Hits {
		books = append(books, domain.BookView{
			Title:       hit.Book.Title,
			Author:      hit.Book.Author,
			ISBN:        hit.Book.ISBN,
			Categories:  hit.Book.Categories,
			Description: hit.Book.Description,
		})
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("title", params.Title),
		slog.Int64("total", res.Total),
		slog.Int("suggestions", len(suggestions)),
	)

	return &domain.SearchResult{
		Total:       res.Total,
		Books:       books,
		Suggestions: suggestions,
	}, nil
}

// validateSearchParams rejects malformed paging and sorting before any
// engine call is issued.
func validateSearchParams(p domain.SearchParams) error {
	if p.Page <= 0 {
		return apperrors.InvalidInput("page must be greater than zero")
	}
	if p.PageSize <= 0 {
		return apperrors.InvalidInput("pageSize must be greater than zero")
	}
	if p.SortBy != "" && !domain.IsValidSortField(p.SortBy) {
		return apperrors.InvalidInput("sortBy must be one of: title, author, isbn")
	}
	if p.SortOrder != "" && !domain.IsValidSortOrder(p.SortOrder) {
		return apperrors.InvalidInput("sortOrder must be one of: asc, desc")
	}
	return nil
}

// Suggest returns lightweight title-first suggestions for a raw query.
func (s *BookService) Suggest(ctx context.Context, q string) ([]domain.TitleSuggestion, error) {
	res, err := s.engine.Search(ctx, query.BuildTitleSuggestion(q))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("suggest books: %w", err))
	}

	suggestions := make([]domain.TitleSuggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		suggestions = append(suggestions, domain.TitleSuggestion{
			Title:  hit.Book.Title,
			Author: hit.Book.Author,
			Rating: hit.Book.Rating,
		})
	}
	return suggestions, nil
}

// Categories lists category facets ordered by average rating.
func (s *BookService) Categories(ctx context.Context) (*domain.FacetResult, error) {
	res, err := s.engine.Aggregate(ctx, query.BuildCategoryFacets())
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("aggregate categories: %w", err))
	}
	return res, nil
}

// Publishers lists publisher facets ordered by average rating.
func (s *BookService) Publishers(ctx context.Context) (*domain.FacetResult, error) {
	res, err := s.engine.Aggregate(ctx, query.BuildPublisherFacets())
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("aggregate publishers: %w", err))
	}
	return res, nil
}

// TopBooks lists the highest-rated books, optionally restricted to
// categories. Limit must be between 1 and 100.
func (s *BookService) TopBooks(ctx context.Context, categories []string, limit int) ([]domain.TopBook, error) {
	if limit <= 0 || limit > 100 {
		return nil, apperrors.InvalidInput("limit must be between 1 and 100")
	}

	res, err := s.engine.Search(ctx, query.BuildTopBooks(categories, limit))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("top books: %w", err))
	}

	books := make([]domain.TopBook, 0, len(res.Hits))
	for _, hit := range res.Hits {
		books = append(books, domain.TopBook{
			ISBN:       hit.Book.ISBN,
			Title:      hit.Book.Title,
			Author:     hit.Book.Author,
			Publisher:  hit.Book.Publisher,
			Categories: hit.Book.Categories,
			Rating:     hit.Book.Rating,
		})
	}
	return books, nil
}
