package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/engine"
	"github.com/searchify/searchify/internal/query"
)

// Engine is an Elasticsearch-backed implementation of the SearchEngine
// interface.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string      `json:"_id"`
			Source domain.Book `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esAggResponse is the structure used to decode aggregation responses.
// Aggregation names vary per plan, so the named sections stay raw until the
// caller picks them out.
type esAggResponse struct {
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// esWriteResponse decodes the parts of index/update/delete responses we need.
type esWriteResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

// New creates a new Elasticsearch engine connected to the given URL and runs
// the provided index initializers, creating any index that does not exist.
// If indexName is empty, domain.IndexName is used.
func New(esURL, indexName string, inits []Initializer, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = domain.IndexName
	}

	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}

	for _, init := range inits {
		if err := e.ensureIndex(init); err != nil {
			return nil, fmt.Errorf("elasticsearch: failed to ensure index %q: %w", init.Index, err)
		}
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the index exists and creates it if not.
func (e *Engine) ensureIndex(init Initializer) error {
	res, err := e.client.Indices.Exists([]string{init.Index})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", init.Index)
		return nil
	}

	res, err = e.client.Indices.Create(
		init.Index,
		e.client.Indices.Create.WithBody(strings.NewReader(init.Mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("create index: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("create index: unexpected status %s", res.Status())
	}

	e.logger.Info("elasticsearch index created", "index", init.Index)
	return nil
}

// Search executes a query plan against Elasticsearch.
func (e *Engine) Search(ctx context.Context, plan *query.Plan) (*engine.Result, error) {
	body := buildSearchBody(plan)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, e.responseError("elasticsearch search", res.Body, res.Status())
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := make([]engine.Hit, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		book := h.Source
		book.ID = h.ID
		hits = append(hits, engine.Hit{ID: h.ID, Book: book})
	}

	return &engine.Result{
		Total: esResp.Hits.Total.Value,
		Hits:  hits,
	}, nil
}

// Aggregate executes a facet aggregation plan against Elasticsearch.
func (e *Engine) Aggregate(ctx context.Context, plan *query.AggregationPlan) (*domain.FacetResult, error) {
	body := buildAggregationBody(plan)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch aggregate: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch aggregate: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, e.responseError("elasticsearch aggregate", res.Body, res.Status())
	}

	var esResp esAggResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch aggregate: decode response: %w", err)
	}

	return decodeFacets(esResp.Aggregations, plan)
}

// decodeFacets extracts the named terms buckets and the cardinality count
// from the raw aggregation sections. A bucket without the metric defaults
// its average to 0.
func decodeFacets(aggs map[string]json.RawMessage, plan *query.AggregationPlan) (*domain.FacetResult, error) {
	result := &domain.FacetResult{Buckets: []domain.FacetBucket{}}

	if raw, ok := aggs[plan.CountName]; ok {
		var card struct {
			Value int64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &card); err != nil {
			return nil, fmt.Errorf("decode cardinality %q: %w", plan.CountName, err)
		}
		result.Total = card.Value
	}

	raw, ok := aggs[plan.Name]
	if !ok {
		return result, nil
	}

	var terms struct {
		Buckets []map[string]json.RawMessage `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &terms); err != nil {
		return nil, fmt.Errorf("decode terms %q: %w", plan.Name, err)
	}

	for _, b := range terms.Buckets {
		var key string
		if rawKey, ok := b["key"]; ok {
			if err := json.Unmarshal(rawKey, &key); err != nil {
				return nil, fmt.Errorf("decode bucket key: %w", err)
			}
		}

		var avg float64
		if rawMetric, ok := b[plan.MetricName]; ok {
			var metric struct {
				Value *float64 `json:"value"`
			}
			if err := json.Unmarshal(rawMetric, &metric); err != nil {
				return nil, fmt.Errorf("decode bucket metric: %w", err)
			}
			if metric.Value != nil {
				avg = *metric.Value
			}
		}

		result.Buckets = append(result.Buckets, domain.FacetBucket{Key: key, AvgRating: avg})
	}

	return result, nil
}

// Index stores a new book document. Elasticsearch assigns the identifier.
func (e *Engine) Index(ctx context.Context, book *domain.Book) (string, error) {
	data, err := json.Marshal(book)
	if err != nil {
		return "", fmt.Errorf("elasticsearch index: marshal book: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return "", e.responseError("elasticsearch index", res.Body, res.Status())
	}

	var wr esWriteResponse
	if err := json.NewDecoder(res.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("elasticsearch index: decode response: %w", err)
	}

	e.logger.Debug("indexed book", "id", wr.ID, "isbn", book.ISBN)
	return wr.ID, nil
}

// Update applies a partial document update by engine identifier.
func (e *Engine) Update(ctx context.Context, id string, book *domain.Book) error {
	body := map[string]interface{}{"doc": book}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("elasticsearch update: marshal doc: %w", err)
	}

	res, err := e.client.Update(
		e.indexName,
		id,
		bytes.NewReader(data),
		e.client.Update.WithRefresh("true"),
		e.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch update: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return e.responseError("elasticsearch update", res.Body, res.Status())
	}

	e.logger.Debug("updated book", "id", id, "isbn", book.ISBN)
	return nil
}

// Delete removes a document by its engine identifier.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return e.responseError("elasticsearch delete", res.Body, res.Status())
	}

	e.logger.Debug("deleted book", "id", id)
	return nil
}

// responseError decodes an Elasticsearch error body into a wrapped error.
func (e *Engine) responseError(op string, body io.Reader, status string) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, status)
}
