package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/searchify/searchify/pkg/errors"
	"github.com/searchify/searchify/pkg/httputil"
	"github.com/searchify/searchify/pkg/validator"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	defaultTopLimit = 10
)

// BookHandler exposes the catalog over HTTP.
type BookHandler struct {
	service *service.BookService
	logger  *slog.Logger
}

// NewBookHandler creates a new book handler.
func NewBookHandler(svc *service.BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		service: svc,
		logger:  logger,
	}
}

// BookRequest is the write payload for create and update.
type BookRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Author      string    `json:"author" validate:"required,max=100"`
	Publisher   string    `json:"publisher" validate:"required,max=100"`
	ISBN        string    `json:"isbn" validate:"required,min=10,max=13"`
	Description string    `json:"description" validate:"max=1000"`
	Categories  []string  `json:"categories" validate:"required,min=1,dive,required"`
	PublishDate time.Time `json:"publish_date" validate:"required"`
	PageCount   int       `json:"page_count" validate:"required,gt=0"`
	Rating      float64   `json:"rating" validate:"gte=0,lte=5"`
}

func (req *BookRequest) toInput() *service.BookInput {
	return &service.BookInput{
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		ISBN:        req.ISBN,
		Description: req.Description,
		Categories:  req.Categories,
		PublishDate: req.PublishDate,
		PageCount:   req.PageCount,
		Rating:      req.Rating,
	}
}

// bookResponse adds the engine-assigned identifier to the serialized record.
type bookResponse struct {
	ID string `json:"id"`
	domain.Book
}

// topBooksResponse is the top-rated listing envelope.
type topBooksResponse struct {
	Count int              `json:"count"`
	Books []domain.TopBook `json:"books"`
}

// decodeBookRequest decodes and validates a write payload, including the
// publish-date check the struct tags cannot express.
func decodeBookRequest(r *http.Request) (*BookRequest, error) {
	var req BookRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		return nil, err
	}
	if req.PublishDate.After(time.Now()) {
		return nil, apperrors.InvalidInput("publish_date must not be in the future")
	}
	return &req, nil
}

// Create handles POST /api/books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBookRequest(r)
	if err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	book, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: bookResponse{ID: book.ID, Book: *book}})
}

// Update handles PUT /api/books/{isbn}.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	if err := validateISBNParam(isbn); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	req, err := decodeBookRequest(r)
	if err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	book, err := h.service.Update(r.Context(), isbn, req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: bookResponse{ID: book.ID, Book: *book}})
}

// Delete handles DELETE /api/books/{isbn}. Any ISBN that resolves to no
// record reports not-found; there is no separate shape check here.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	if err := h.service.Delete(r.Context(), isbn); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{})
}

// GetByISBN handles GET /api/books/{isbn}.
func (h *BookHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	if err := validateISBNParam(isbn); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	book, err := h.service.GetByISBN(r.Context(), isbn)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: bookResponse{ID: book.ID, Book: *book}})
}

// Search handles GET /api/books/search.
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"), defaultPage)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("page must be an integer"), h.logger)
		return
	}
	pageSize, err := queryInt(q.Get("pageSize"), defaultPageSize)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("pageSize must be an integer"), h.logger)
		return
	}

	params := domain.SearchParams{
		Title:       q.Get("title"),
		Author:      q.Get("author"),
		ISBN:        q.Get("isbn"),
		Description: q.Get("description"),
		Categories:  queryList(q["categories"]),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
		Page:        page,
		PageSize:    pageSize,
	}

	result, err := h.service.Search(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Suggest handles GET /api/books/suggestion.
func (h *BookHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("q is required"), h.logger)
		return
	}

	suggestions, err := h.service.Suggest(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: suggestions})
}

// Categories handles GET /api/books/categories.
func (h *BookHandler) Categories(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Publishers handles GET /api/books/publishers.
func (h *BookHandler) Publishers(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Publishers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// TopBooks handles GET /api/books/TopBook.
func (h *BookHandler) TopBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), defaultTopLimit)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("limit must be an integer"), h.logger)
		return
	}

	books, err := h.service.TopBooks(r.Context(), queryList(q["categories"]), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: topBooksResponse{Count: len(books), Books: books}})
}

func validateISBNParam(isbn string) error {
	if len(isbn) < 10 || len(isbn) > 13 {
		return apperrors.InvalidInput("isbn must be between 10 and 13 characters")
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// queryList accepts repeated parameters as well as comma-separated values.
func queryList(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// writeRequestError routes payload failures: validation errors become
// field-level 400s, everything else goes through the standard error path.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		httputil.WriteError(w, r, err, logger)
		return
	}
	httputil.WriteValidationError(w, err)
}
