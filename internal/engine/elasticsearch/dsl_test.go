package elasticsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchify/searchify/internal/domain"
	"github.com/searchify/searchify/internal/query"
)

func TestBuildSearchBodyEmptyPlanMatchesAll(t *testing.T) {
	body := buildSearchBody(&query.Plan{From: 0, Size: 10})

	q, ok := body["query"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, q, "match_all")
	assert.Equal(t, true, body["track_total_hits"])
	assert.NotContains(t, body, "sort")
}

func TestBuildSearchBodyFullPlan(t *testing.T) {
	plan := query.BuildBookSearch(domain.SearchParams{
		Title:      "dune",
		Categories: []string{"Science Fiction"},
		Page:       2,
		PageSize:   20,
	})
	body := buildSearchBody(plan)

	assert.Equal(t, 20, body["from"])
	assert.Equal(t, 20, body["size"])

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	musts := boolQuery["must"].([]interface{})
	require.Len(t, musts, 3, "title group plus two category clauses")

	// The title group is a nested should with minimum_should_match 1.
	titleGroup := musts[0].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Equal(t, 1, titleGroup["minimum_should_match"])
	shoulds := titleGroup["should"].([]interface{})
	require.Len(t, shoulds, 2)

	exact := shoulds[0].(map[string]interface{})["match"].(map[string]interface{})["title"].(map[string]interface{})
	assert.NotContains(t, exact, "fuzziness")
	fuzzy := shoulds[1].(map[string]interface{})["match"].(map[string]interface{})["title"].(map[string]interface{})
	assert.Equal(t, "AUTO", fuzzy["fuzziness"])

	src := body["_source"].(map[string]interface{})
	assert.Equal(t, []string{"title", "author", "isbn", "categories", "description"}, src["includes"])
}

func TestBuildSearchBodySort(t *testing.T) {
	plan := query.BuildBookSearch(domain.SearchParams{
		SortBy: "title", SortOrder: "desc", Page: 1, PageSize: 10,
	})
	body := buildSearchBody(plan)

	sorts := body["sort"].([]interface{})
	require.Len(t, sorts, 2)
	assert.Equal(t, map[string]interface{}{"rating": "desc"}, sorts[0])
	assert.Equal(t, map[string]interface{}{"title.keyword": "desc"}, sorts[1])
}

func TestClauseDSLModes(t *testing.T) {
	field := query.Field{Name: "isbn"}

	term := clauseDSL(query.Clause{Field: field, Mode: query.ModeTerm, Value: "9780441172719"})
	params := term["term"].(map[string]interface{})["isbn"].(map[string]interface{})
	assert.Equal(t, "9780441172719", params["value"])

	terms := clauseDSL(query.Clause{Field: query.Field{Name: "categories.keyword"}, Mode: query.ModeTerms, Values: []string{"Fantasy"}})
	assert.Equal(t, []string{"Fantasy"}, terms["terms"].(map[string]interface{})["categories.keyword"])

	phrase := clauseDSL(query.Clause{Field: query.Field{Name: "categories.keyword"}, Mode: query.ModePhrase, Value: "Science Fiction", Boost: 3})
	pp := phrase["match_phrase"].(map[string]interface{})["categories.keyword"].(map[string]interface{})
	assert.EqualValues(t, 3, pp["boost"])

	prefix := clauseDSL(query.Clause{Field: query.Field{Name: "title"}, Mode: query.ModePhrasePrefix, Value: "wiz", Boost: 4})
	assert.Contains(t, prefix, "match_phrase_prefix")

	andMatch := clauseDSL(query.Clause{Field: query.Field{Name: "categories.keyword"}, Mode: query.ModeMatch, Value: "Science Fiction", AndTerms: true})
	mp := andMatch["match"].(map[string]interface{})["categories.keyword"].(map[string]interface{})
	assert.Equal(t, "and", mp["operator"])
	assert.NotContains(t, mp, "boost")
}

func TestBuildAggregationBody(t *testing.T) {
	body := buildAggregationBody(query.BuildCategoryFacets())

	assert.Equal(t, 0, body["size"])
	aggs := body["aggs"].(map[string]interface{})
	require.Contains(t, aggs, "categories")
	require.Contains(t, aggs, "total_categories")

	terms := aggs["categories"].(map[string]interface{})["terms"].(map[string]interface{})
	assert.Equal(t, "categories.keyword", terms["field"])
	assert.Equal(t, 100, terms["size"])
	assert.Equal(t, map[string]interface{}{"avg_rating": "desc"}, terms["order"])

	card := aggs["total_categories"].(map[string]interface{})["cardinality"].(map[string]interface{})
	assert.Equal(t, "categories.keyword", card["field"])
}
