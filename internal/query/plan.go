package query

// Mode describes how a clause matches its field.
type Mode int

const (
	// ModeTerm is an exact, case-sensitive comparison on a keyword field.
	ModeTerm Mode = iota

	// ModeTerms matches when the field equals any of several exact values.
	ModeTerms

	// ModeMatch is an analyzed (tokenized) match.
	ModeMatch

	// ModePhrase matches the value as a contiguous phrase.
	ModePhrase

	// ModePhrasePrefix matches a phrase whose last token may be a prefix.
	ModePhrasePrefix
)

// Clause is a single matching condition against one field.
type Clause struct {
	Field  Field
	Mode   Mode
	Value  string
	Values []string // ModeTerms only

	// Fuzzy enables automatic edit-distance tolerance for analyzed matches.
	Fuzzy bool

	// Boost is the relative weight of the clause's score contribution.
	// Zero means the engine default of 1.
	Boost float64

	// AndTerms requires every token of a multi-token match to be present.
	AndTerms bool
}

// MustClause is one conjunctive arm of a plan: either a single clause or a
// disjunctive group of which at least one member must match. Members of a
// group that match all contribute to the score.
type MustClause struct {
	Clause *Clause
	AnyOf  []Clause
}

// SortKey orders results by a field or by relevance score.
type SortKey struct {
	Field   Field
	ByScore bool
	Desc    bool
}

// Plan is the engine-agnostic description of one search request. Must
// clauses are conjunctive; an absent search input contributes no clause, so
// an empty Must list matches the entire collection. AnyOf is a top-level
// disjunction (minimum one must match) used by the suggestion queries.
type Plan struct {
	Must  []MustClause
	AnyOf []Clause
	Sort  []SortKey
	From  int
	Size  int

	// Fields is the source projection; empty means the full document.
	Fields []string
}

// AggregationPlan describes a term-bucket aggregation with a nested
// average-rating metric, ordered by that metric descending, plus a
// cardinality count of distinct bucket keys.
type AggregationPlan struct {
	Name        string
	GroupBy     Field
	BucketSize  int
	MetricName  string
	MetricField Field
	CountName   string
}
