package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/engine"
	"github.com/searchify/searchify/internal/query"
)

// Engine is an in-memory implementation of the SearchEngine interface. It
// evaluates query plans directly against stored documents, approximating
// the scoring of a real inverted index: every matching clause adds its
// boost to the document score. Thread-safe via sync.RWMutex.
type Engine struct {
	mu    sync.RWMutex
	books map[string]domain.Book
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		books: make(map[string]domain.Book),
	}
}

// Index stores a new book under a generated identifier.
func (e *Engine) Index(_ context.Context, book *domain.Book) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New().String()
	stored := *book
	stored.ID = id
	e.books[id] = stored
	return id, nil
}

// Update replaces the stored document. The identifier must exist.
func (e *Engine) Update(_ context.Context, id string, book *domain.Book) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.books[id]; !ok {
		return fmt.Errorf("memory update: document %s not found", id)
	}
	stored := *book
	stored.ID = id
	e.books[id] = stored
	return nil
}

// Delete removes a document by identifier. Unknown identifiers are ignored.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.books, id)
	return nil
}

type scoredHit struct {
	id    string
	book  domain.Book
	score float64
}

// Search evaluates a query plan against the stored documents.
func (e *Engine) Search(_ context.Context, plan *query.Plan) (*engine.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matched := make([]scoredHit, 0)
	for id, b := range e.books {
		ok, score := evaluate(plan, b)
		if !ok {
			continue
		}
		matched = append(matched, scoredHit{id: id, book: b, score: score})
	}

	// Deterministic base order before applying sort keys.
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })

	keys := plan.Sort
	if len(keys) == 0 {
		keys = []query.SortKey{{ByScore: true, Desc: true}}
	}
	sortHits(matched, keys)

	total := int64(len(matched))

	from := plan.From
	if from > len(matched) {
		from = len(matched)
	}
	end := len(matched)
	if plan.Size > 0 && from+plan.Size < end {
		end = from + plan.Size
	}

	hits := make([]engine.Hit, 0, end-from)
	for _, m := range matched[from:end] {
		hits = append(hits, engine.Hit{ID: m.id, Book: m.book})
	}

	return &engine.Result{Total: total, Hits: hits}, nil
}

// Aggregate groups documents by the plan's bucket field, computes the
// average rating per bucket, and orders buckets by that average descending.
// The distinct-key count is taken before the bucket cap is applied.
func (e *Engine) Aggregate(_ context.Context, plan *query.AggregationPlan) (*domain.FacetResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	groups := make(map[string][]float64)
	for _, b := range e.books {
		for _, key := range fieldValues(b, plan.GroupBy.Name) {
			groups[key] = append(groups[key], b.Rating)
		}
	}

	buckets := make([]domain.FacetBucket, 0, len(groups))
	for key, ratings := range groups {
		var sum float64
		for _, r := range ratings {
			sum += r
		}
		avg := 0.0
		if len(ratings) > 0 {
			avg = sum / float64(len(ratings))
		}
		buckets = append(buckets, domain.FacetBucket{Key: key, AvgRating: avg})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].AvgRating != buckets[j].AvgRating {
			return buckets[i].AvgRating > buckets[j].AvgRating
		}
		return buckets[i].Key < buckets[j].Key
	})

	total := int64(len(buckets))
	if plan.BucketSize > 0 && len(buckets) > plan.BucketSize {
		buckets = buckets[:plan.BucketSize]
	}

	return &domain.FacetResult{Total: total, Buckets: buckets}, nil
}

// evaluate checks a document against the plan's conjunctive and disjunctive
// arms, accumulating boosts of every matching clause into the score.
func evaluate(plan *query.Plan, b domain.Book) (bool, float64) {
	var score float64

	for _, m := range plan.Must {
		if m.Clause != nil {
			ok, s := evalClause(*m.Clause, b)
			if !ok {
				return false, 0
			}
			score += s
			continue
		}

		anyMatched := false
		for _, c := range m.AnyOf {
			if ok, s := evalClause(c, b); ok {
				anyMatched = true
				score += s
			}
		}
		if !anyMatched {
			return false, 0
		}
	}

	if len(plan.AnyOf) > 0 {
		anyMatched := false
		for _, c := range plan.AnyOf {
			if ok, s := evalClause(c, b); ok {
				anyMatched = true
				score += s
			}
		}
		if !anyMatched {
			return false, 0
		}
	}

	return true, score
}

// evalClause evaluates one clause and returns its score contribution.
func evalClause(c query.Clause, b domain.Book) (bool, float64) {
	boost := c.Boost
	if boost == 0 {
		boost = 1
	}

	values := fieldValues(b, c.Field.Name)

	switch c.Mode {
	case query.ModeTerm:
		for _, v := range values {
			if v == c.Value {
				return true, boost
			}
		}

	case query.ModeTerms:
		for _, v := range values {
			for _, want := range c.Values {
				if v == want {
					return true, boost
				}
			}
		}

	case query.ModePhrase:
		needle := strings.ToLower(c.Value)
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), needle) {
				return true, boost
			}
		}

	case query.ModePhrasePrefix:
		for _, v := range values {
			if phrasePrefixMatch(strings.ToLower(v), strings.ToLower(c.Value)) {
				return true, boost
			}
		}

	case query.ModeMatch:
		queryTokens := tokenize(c.Value)
		if len(queryTokens) == 0 {
			return false, 0
		}
		for _, v := range values {
			if tokensMatch(tokenize(v), queryTokens, c.Fuzzy, c.AndTerms) {
				return true, boost
			}
		}
	}

	return false, 0
}

// tokensMatch applies analyzed-match semantics: with AND every query token
// must appear; otherwise one suffices. Fuzzy matching allows an automatic
// edit-distance tolerance per token.
func tokensMatch(docTokens, queryTokens []string, fuzzy, andTerms bool) bool {
	matchedAny := false
	for _, qt := range queryTokens {
		found := false
		for _, dt := range docTokens {
			if tokenMatches(dt, qt, fuzzy) {
				found = true
				break
			}
		}
		if found {
			matchedAny = true
		} else if andTerms {
			return false
		}
	}
	if andTerms {
		return len(queryTokens) > 0
	}
	return matchedAny
}

func tokenMatches(docToken, queryToken string, fuzzy bool) bool {
	if docToken == queryToken {
		return true
	}
	if !fuzzy {
		return false
	}
	return editDistance(docToken, queryToken) <= autoFuzziness(queryToken)
}

// autoFuzziness mirrors the engine's AUTO policy: no tolerance for very
// short tokens, one edit for mid-length, two for longer.
func autoFuzziness(token string) int {
	switch n := len(token); {
	case n < 3:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// editDistance computes the Levenshtein distance between two tokens.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// phrasePrefixMatch matches a phrase whose last token may be a prefix of a
// document token.
func phrasePrefixMatch(doc, phrase string) bool {
	if strings.Contains(doc, phrase) {
		return true
	}
	tokens := tokenize(phrase)
	if len(tokens) == 0 {
		return false
	}
	last := tokens[len(tokens)-1]
	for _, prior := range tokens[:len(tokens)-1] {
		if !strings.Contains(doc, prior) {
			return false
		}
	}
	for _, dt := range tokenize(doc) {
		if strings.HasPrefix(dt, last) {
			return true
		}
	}
	return false
}

// tokenize splits on non-alphanumeric runes and lowercases, approximating
// the index's standard tokenizer with a lowercase filter.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// fieldValues maps a physical field name to the document's values for that
// field. Keyword variants share the base attribute's values.
func fieldValues(b domain.Book, field string) []string {
	switch strings.TrimSuffix(field, ".keyword") {
	case "title":
		return []string{b.Title}
	case "author":
		return []string{b.Author}
	case "publisher":
		return []string{b.Publisher}
	case "isbn":
		return []string{b.ISBN}
	case "description":
		return []string{b.Description}
	case "categories":
		return b.Categories
	}
	return nil
}

// sortHits orders hits by the plan's sort key list.
func sortHits(hits []scoredHit, keys []query.SortKey) {
	sort.SliceStable(hits, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareByKey(hits[i], hits[j], k)
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareByKey(a, b scoredHit, k query.SortKey) int {
	if k.ByScore {
		return compareFloat(a.score, b.score)
	}

	switch k.Field.Name {
	case "rating":
		return compareFloat(a.book.Rating, b.book.Rating)
	case "page_count":
		return a.book.PageCount - b.book.PageCount
	case "publish_date":
		return compareTime(a.book.PublishDate, b.book.PublishDate)
	default:
		av := firstValue(fieldValues(a.book, k.Field.Name))
		bv := firstValue(fieldValues(b.book, k.Field.Name))
		return strings.Compare(av, bv)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
