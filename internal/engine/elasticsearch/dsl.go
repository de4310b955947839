package elasticsearch

import (
	"github.com/searchify/searchify/internal/query"
)

// buildSearchBody translates an engine-agnostic plan into the Elasticsearch
// query DSL as a map.
func buildSearchBody(plan *query.Plan) map[string]interface{} {
	boolQuery := map[string]interface{}{}

	if len(plan.Must) > 0 {
		musts := make([]interface{}, 0, len(plan.Must))
		for _, m := range plan.Must {
			musts = append(musts, mustDSL(m))
		}
		boolQuery["must"] = musts
	}

	if len(plan.AnyOf) > 0 {
		shoulds := make([]interface{}, 0, len(plan.AnyOf))
		for _, c := range plan.AnyOf {
			shoulds = append(shoulds, clauseDSL(c))
		}
		boolQuery["should"] = shoulds
		boolQuery["minimum_should_match"] = 1
	}

	// An empty plan matches the whole collection, never a wildcard clause.
	var queryDSL map[string]interface{}
	if len(boolQuery) == 0 {
		queryDSL = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		queryDSL = map[string]interface{}{"bool": boolQuery}
	}

	body := map[string]interface{}{
		"query":            queryDSL,
		"from":             plan.From,
		"size":             plan.Size,
		"track_total_hits": true,
	}

	if len(plan.Sort) > 0 {
		sorts := make([]interface{}, 0, len(plan.Sort))
		for _, s := range plan.Sort {
			sorts = append(sorts, sortDSL(s))
		}
		body["sort"] = sorts
	}

	if len(plan.Fields) > 0 {
		body["_source"] = map[string]interface{}{"includes": plan.Fields}
	}

	return body
}

// mustDSL renders one conjunctive arm: a leaf clause, or a nested bool
// should-group of which at least one member must match.
func mustDSL(m query.MustClause) map[string]interface{} {
	if m.Clause != nil {
		return clauseDSL(*m.Clause)
	}

	shoulds := make([]interface{}, 0, len(m.AnyOf))
	for _, c := range m.AnyOf {
		shoulds = append(shoulds, clauseDSL(c))
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               shoulds,
			"minimum_should_match": 1,
		},
	}
}

// clauseDSL renders a single clause in its native matching mode.
func clauseDSL(c query.Clause) map[string]interface{} {
	switch c.Mode {
	case query.ModeTerm:
		params := map[string]interface{}{"value": c.Value}
		if c.Boost > 0 {
			params["boost"] = c.Boost
		}
		return map[string]interface{}{
			"term": map[string]interface{}{c.Field.Name: params},
		}

	case query.ModeTerms:
		return map[string]interface{}{
			"terms": map[string]interface{}{c.Field.Name: c.Values},
		}

	case query.ModePhrase:
		params := map[string]interface{}{"query": c.Value}
		if c.Boost > 0 {
			params["boost"] = c.Boost
		}
		return map[string]interface{}{
			"match_phrase": map[string]interface{}{c.Field.Name: params},
		}

	case query.ModePhrasePrefix:
		params := map[string]interface{}{"query": c.Value}
		if c.Boost > 0 {
			params["boost"] = c.Boost
		}
		return map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{c.Field.Name: params},
		}

	default: // ModeMatch
		params := map[string]interface{}{"query": c.Value}
		if c.Fuzzy {
			params["fuzziness"] = "AUTO"
		}
		if c.Boost > 0 {
			params["boost"] = c.Boost
		}
		if c.AndTerms {
			params["operator"] = "and"
		}
		return map[string]interface{}{
			"match": map[string]interface{}{c.Field.Name: params},
		}
	}
}

// sortDSL renders a sort key.
func sortDSL(s query.SortKey) map[string]interface{} {
	order := "asc"
	if s.Desc {
		order = "desc"
	}
	if s.ByScore {
		return map[string]interface{}{"_score": order}
	}
	return map[string]interface{}{s.Field.Name: order}
}

// buildAggregationBody renders a facet aggregation request: no document
// hits, one terms bucket ordered by the nested metric, one cardinality.
func buildAggregationBody(plan *query.AggregationPlan) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			plan.Name: map[string]interface{}{
				"terms": map[string]interface{}{
					"field": plan.GroupBy.Name,
					"size":  plan.BucketSize,
					"order": map[string]interface{}{plan.MetricName: "desc"},
				},
				"aggs": map[string]interface{}{
					plan.MetricName: map[string]interface{}{
						"avg": map[string]interface{}{"field": plan.MetricField.Name},
					},
				},
			},
			plan.CountName: map[string]interface{}{
				"cardinality": map[string]interface{}{"field": plan.GroupBy.Name},
			},
		},
	}
}
