package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchify/searchify/pkg/health"
	"github.com/searchify/searchify/pkg/httputil"
	"github.com/searchify/searchify/pkg/logger"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/engine/memory"
	"github.com/searchify/searchify/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logger.NewWithWriter("test", "error", io.Discard)
	svc := service.NewBookService(memory.New(), log)
	router := NewRouter(NewBookHandler(svc, log), health.NewHandler(), log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, *envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, &env
}

func bookPayload(title, isbn string, rating float64) map[string]any {
	return map[string]any{
		"title":        title,
		"author":       "Frank Herbert",
		"publisher":    "Ace Books",
		"isbn":         isbn,
		"description":  "a story about " + title,
		"categories":   []string{"Science Fiction"},
		"publish_date": "1965-08-01T00:00:00Z",
		"page_count":   412,
		"rating":       rating,
	}
}

func createBook(t *testing.T, srv *httptest.Server, payload map[string]any) {
	t.Helper()
	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/books/", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create failed: %+v", env.Error)
}

func TestCreateBook(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/books/", bookPayload("Dune", "9780441172719", 4.8))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Nil(t, env.Error)

	var book bookResponse
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "9780441172719", book.ISBN)
}

func TestCreateDuplicateISBNConflict(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/books/", bookPayload("Dune Reissue", "9780441172719", 4.0))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing title", func(p map[string]any) { delete(p, "title") }, "Title"},
		{"isbn too short", func(p map[string]any) { p["isbn"] = "123" }, "ISBN"},
		{"rating above five", func(p map[string]any) { p["rating"] = 5.5 }, "Rating"},
		{"empty categories", func(p map[string]any) { p["categories"] = []string{} }, "Categories"},
		{"zero page count", func(p map[string]any) { p["page_count"] = 0 }, "PageCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := bookPayload("Dune", "9780441172719", 4.8)
			tt.mutate(payload)

			resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/books/", payload)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.Contains(t, env.Error.Fields, tt.field)
		})
	}
}

func TestCreateFuturePublishDateRejected(t *testing.T) {
	srv := newTestServer(t)

	payload := bookPayload("Dune", "9780441172719", 4.8)
	payload["publish_date"] = "2199-01-01T00:00:00Z"

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/books/", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestCreateRequiresJSONContentType(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/books/", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestGetByISBN(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/9780441172719", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var book bookResponse
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Dune", book.Title)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/books/9780000000000", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestISBNParamLength(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/123", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestUpdateBook(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))

	resp, env := doJSON(t, http.MethodPut, srv.URL+"/api/books/9780441172719", bookPayload("Dune", "9780441172719", 4.9))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var book bookResponse
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.Equal(t, 4.9, book.Rating)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/books/9780000000000", bookPayload("Ghost", "9780000000000", 1.0))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateISBNCollision(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))
	createBook(t, srv, bookPayload("Emma", "9780141439587", 4.0))

	resp, env := doJSON(t, http.MethodPut, srv.URL+"/api/books/9780441172719", bookPayload("Dune", "9780141439587", 4.8))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)
}

func TestDeleteBook(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))

	resp, env := doJSON(t, http.MethodDelete, srv.URL+"/api/books/9780441172719", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, env.Error)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/books/9780441172719", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteUnknownISBNShapes(t *testing.T) {
	srv := newTestServer(t)

	// Delete has no ISBN shape gate: anything that resolves to no record,
	// however malformed, is a plain not-found.
	for _, isbn := range []string{"123", "9780000000000"} {
		resp, env := doJSON(t, http.MethodDelete, srv.URL+"/api/books/"+isbn, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "isbn %s", isbn)
		require.NotNil(t, env.Error)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))
	createBook(t, srv, bookPayload("Emma", "9780141439587", 4.0))

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/search?title=Dune", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.EqualValues(t, 1, result.Total)
	require.Len(t, result.Books, 1)
	assert.Equal(t, "Dune", result.Books[0].Title)
	assert.NotNil(t, result.Suggestions)
}

func TestSearchFallbackSuggestions(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("A Wizard of Earthsea", "9780547773742", 4.5))

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/search?title=wiz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.EqualValues(t, 0, result.Total)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "A Wizard of Earthsea", result.Suggestions[0].Title)
}

func TestSearchBadParams(t *testing.T) {
	srv := newTestServer(t)

	for name, qs := range map[string]string{
		"non-integer page":     "page=abc",
		"zero page":            "page=0",
		"non-integer pageSize": "pageSize=ten",
		"zero pageSize":        "pageSize=0",
		"bad sortBy":           "sortBy=rating",
		"bad sortOrder":        "sortBy=title&sortOrder=sideways",
	} {
		t.Run(name, func(t *testing.T) {
			resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/search?"+qs, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotNil(t, env.Error)
		})
	}
}

func TestSuggestion(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("A Wizard of Earthsea", "9780547773742", 4.5))

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/suggestion?q=wiz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var suggestions []domain.TitleSuggestion
	require.NoError(t, json.Unmarshal(env.Data, &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, 4.5, suggestions[0].Rating)
}

func TestSuggestionRequiresQuery(t *testing.T) {
	srv := newTestServer(t)

	for _, qs := range []string{"", "?q=", "?q=%20%20"} {
		resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/suggestion"+qs, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotNil(t, env.Error)
	}
}

func TestFacetEndpoints(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Dune", "9780441172719", 4.8))

	for _, path := range []string{"/api/books/categories", "/api/books/publishers"} {
		resp, env := doJSON(t, http.MethodGet, srv.URL+path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var result domain.FacetResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.EqualValues(t, 1, result.Total, path)
	}
}

func TestTopBooks(t *testing.T) {
	srv := newTestServer(t)
	createBook(t, srv, bookPayload("Low", "9780000000010", 2.0))
	createBook(t, srv, bookPayload("High", "9780000000027", 4.9))

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/books/TopBook", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result topBooksResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Books, 2)
	assert.Equal(t, "High", result.Books[0].Title)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/books/TopBook?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.Count)
	assert.Len(t, result.Books, 1)
}

func TestTopBooksBadLimit(t *testing.T) {
	srv := newTestServer(t)

	for _, limit := range []string{"0", "101", "-5", "many"} {
		resp, env := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/books/TopBook?limit=%s", srv.URL, limit), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit %s", limit)
		require.NotNil(t, env.Error)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no checkers registered means ready")
}
