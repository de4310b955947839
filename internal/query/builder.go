package query

import (
	"strings"

	"github.com/searchify/searchify/internal/domain"
)

// Boost weights of the relevance query. Title dominates, description is a
// tolerant low-influence signal, and each category contributes through both
// a whole-phrase and a tokenized clause.
const (
	titleExactBoost    = 5
	titleFuzzyBoost    = 1
	descriptionBoost   = 0.5
	categoryExactBoost = 3
	categoryTokenBoost = 1
)

// Boost weights of the broader suggestion query.
const (
	suggestTitleBoost       = 5
	suggestTitlePrefixBoost = 4
	suggestDescriptionBoost = 2
	suggestCategoryBoost    = 1
)

// FallbackThreshold is the primary-hit count below which the broader
// suggestion query is issued, provided a title input was supplied.
const FallbackThreshold = 5

// FallbackSize caps the number of fallback suggestions.
const FallbackSize = 3

// suggestionSize caps the suggestion endpoint's result list.
const suggestionSize = 5

// facetBucketSize caps the number of buckets returned by the facet
// aggregations. The cardinality count is not subject to this cap.
const facetBucketSize = 100

// searchProjection is the field set returned by the advanced search.
var searchProjection = []string{"title", "author", "isbn", "categories", "description"}

// criterion is one candidate search input. Blank values are filtered out
// before clause construction, so an absent input adds nothing to the plan.
type criterion struct {
	value   string
	clauses func(value string) MustClause
}

// BuildBookSearch assembles the weighted boolean query plan for the
// advanced search. Inputs are conjunctive: a record must satisfy every
// supplied criterion. Page and pageSize must already be validated.
func BuildBookSearch(p domain.SearchParams) *Plan {
	candidates := []criterion{
		{p.Author, authorClause},
		{p.ISBN, isbnClause},
		{p.Title, titleClause},
		{p.Description, descriptionClause},
	}

	var must []MustClause
	for _, c := range candidates {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		must = append(must, c.clauses(c.value))
	}
	for _, cat := range p.Categories {
		if strings.TrimSpace(cat) == "" {
			continue
		}
		must = append(must, categoryClauses(cat)...)
	}

	return &Plan{
		Must:   must,
		Sort:   searchSort(p.SortBy, p.SortOrder),
		From:   (p.Page - 1) * p.PageSize,
		Size:   p.PageSize,
		Fields: searchProjection,
	}
}

// authorClause is a plain analyzed match at default weight.
func authorClause(author string) MustClause {
	return MustClause{Clause: &Clause{
		Field: mustResolve(AttrAuthor, RelevanceMatch),
		Mode:  ModeMatch,
		Value: author,
	}}
}

// isbnClause is an exact term comparison, case-sensitive as stored.
func isbnClause(isbn string) MustClause {
	return MustClause{Clause: &Clause{
		Field: mustResolve(AttrISBN, ExactFilterOrSort),
		Mode:  ModeTerm,
		Value: isbn,
	}}
}

// titleClause requires at least one of an exact analyzed match (heavily
// boosted) or a fuzzy analyzed match (tolerant, default weight).
func titleClause(title string) MustClause {
	field := mustResolve(AttrTitle, RelevanceMatch)
	return MustClause{AnyOf: []Clause{
		{Field: field, Mode: ModeMatch, Value: title, Boost: titleExactBoost},
		{Field: field, Mode: ModeMatch, Value: title, Fuzzy: true, Boost: titleFuzzyBoost},
	}}
}

// descriptionClause is a fuzzy analyzed match with low score influence.
func descriptionClause(description string) MustClause {
	return MustClause{Clause: &Clause{
		Field: mustResolve(AttrDescription, RelevanceMatch),
		Mode:  ModeMatch,
		Value: description,
		Fuzzy: true,
		Boost: descriptionBoost,
	}}
}

// categoryClauses adds two clauses per supplied category: a whole-phrase
// match and a tokenized AND match on the exact field. Both are conjunctive
// requirements, and both contribute to scoring when they match.
func categoryClauses(category string) []MustClause {
	field := mustResolve(AttrCategories, ExactFilterOrSort)
	return []MustClause{
		{Clause: &Clause{Field: field, Mode: ModePhrase, Value: category, Boost: categoryExactBoost}},
		{Clause: &Clause{Field: field, Mode: ModeMatch, Value: category, AndTerms: true, Boost: categoryTokenBoost}},
	}
}

// searchSort composes the sort key list. Rating descending is always the
// leading key; relevance score follows unless the caller chose an explicit
// sort field, in which case its exact variant is used with the requested
// direction (ascending unless "desc").
func searchSort(sortBy, sortOrder string) []SortKey {
	keys := []SortKey{{Field: mustResolve(AttrRating, ExactFilterOrSort), Desc: true}}

	if sortBy == "" {
		return append(keys, SortKey{ByScore: true, Desc: true})
	}

	var attr Attribute
	switch sortBy {
	case domain.SortByTitle:
		attr = AttrTitle
	case domain.SortByAuthor:
		attr = AttrAuthor
	case domain.SortByISBN:
		attr = AttrISBN
	}
	return append(keys, SortKey{
		Field: mustResolve(attr, ExactFilterOrSort),
		Desc:  sortOrder == "desc",
	})
}

// suggestionClauses is the lenient disjunctive clause set shared by the
// fallback query and the suggestion endpoint: at least one must match.
func suggestionClauses(text string) []Clause {
	title := mustResolve(AttrTitle, RelevanceMatch)
	return []Clause{
		{Field: title, Mode: ModeMatch, Value: text, Fuzzy: true, Boost: suggestTitleBoost},
		{Field: title, Mode: ModePhrasePrefix, Value: text, Boost: suggestTitlePrefixBoost},
		{Field: mustResolve(AttrDescription, RelevanceMatch), Mode: ModeMatch, Value: text, Fuzzy: true, Boost: suggestDescriptionBoost},
		{Field: mustResolve(AttrCategories, RelevanceMatch), Mode: ModeMatch, Value: text, Boost: suggestCategoryBoost},
	}
}

// BuildSuggestionFallback is the broader secondary query issued when the
// primary search returns fewer than FallbackThreshold hits for a non-blank
// title. No pagination: at most FallbackSize lightweight records.
func BuildSuggestionFallback(title string) *Plan {
	return &Plan{
		AnyOf:  suggestionClauses(title),
		Size:   FallbackSize,
		Fields: []string{"title", "author", "isbn"},
	}
}

// BuildTitleSuggestion is the plan behind the suggestion endpoint: the same
// lenient clause set, ranked by score, then rating, then title.
func BuildTitleSuggestion(q string) *Plan {
	return &Plan{
		AnyOf: suggestionClauses(q),
		Sort: []SortKey{
			{ByScore: true, Desc: true},
			{Field: mustResolve(AttrRating, ExactFilterOrSort), Desc: true},
			{Field: mustResolve(AttrTitle, ExactFilterOrSort), Desc: true},
		},
		Size:   suggestionSize,
		Fields: []string{"title", "author", "rating"},
	}
}

// BuildISBNLookup resolves a single record by its exact ISBN. Used by the
// mutation gatekeeper's existence checks and the fetch-by-isbn endpoint.
func BuildISBNLookup(isbn string) *Plan {
	return &Plan{
		Must: []MustClause{{Clause: &Clause{
			Field: mustResolve(AttrISBN, ExactFilterOrSort),
			Mode:  ModeTerm,
			Value: isbn,
		}}},
		Size: 1,
	}
}

// BuildTopBooks lists the highest-rated books, optionally restricted to a
// set of categories. Limit must already be validated (1..100).
func BuildTopBooks(categories []string, limit int) *Plan {
	var must []MustClause
	if len(categories) > 0 {
		must = append(must, MustClause{Clause: &Clause{
			Field:  mustResolve(AttrCategories, ExactFilterOrSort),
			Mode:   ModeTerms,
			Values: categories,
		}})
	}

	return &Plan{
		Must:   must,
		Sort:   []SortKey{{Field: mustResolve(AttrRating, ExactFilterOrSort), Desc: true}},
		Size:   limit,
		Fields: []string{"isbn", "title", "author", "publisher", "categories", "rating"},
	}
}

// BuildCategoryFacets buckets the collection by category, each bucket
// carrying its average rating, ordered by that metric descending.
func BuildCategoryFacets() *AggregationPlan {
	return &AggregationPlan{
		Name:        "categories",
		GroupBy:     mustResolve(AttrCategories, ExactFilterOrSort),
		BucketSize:  facetBucketSize,
		MetricName:  "avg_rating",
		MetricField: mustResolve(AttrRating, ExactFilterOrSort),
		CountName:   "total_categories",
	}
}

// BuildPublisherFacets is the publisher variant of the facet aggregation,
// structurally identical to the category one.
func BuildPublisherFacets() *AggregationPlan {
	return &AggregationPlan{
		Name:        "publishers",
		GroupBy:     mustResolve(AttrPublisher, ExactFilterOrSort),
		BucketSize:  facetBucketSize,
		MetricName:  "avg_rating",
		MetricField: mustResolve(AttrRating, ExactFilterOrSort),
		CountName:   "total_publishers",
	}
}
