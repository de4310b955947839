package query

import "fmt"

// Attribute is a logical book attribute exposed to search.
type Attribute string

const (
	AttrTitle       Attribute = "title"
	AttrAuthor      Attribute = "author"
	AttrPublisher   Attribute = "publisher"
	AttrISBN        Attribute = "isbn"
	AttrDescription Attribute = "description"
	AttrCategories  Attribute = "categories"
	AttrRating      Attribute = "rating"
	AttrPublishDate Attribute = "publish_date"
	AttrPageCount   Attribute = "page_count"
)

// Usage declares how the caller intends to use a resolved field.
type Usage int

const (
	// RelevanceMatch selects the analyzed variant, for fuzzy/partial
	// relevance matching.
	RelevanceMatch Usage = iota

	// ExactFilterOrSort selects the exact (keyword or numeric) variant,
	// for filters, sorting, and aggregation bucket keys.
	ExactFilterOrSort
)

// Field is a resolved reference to a physical searchable field variant.
type Field struct {
	Name string
}

// fieldVariants maps each logical attribute to its physical variants. An
// empty entry means the attribute has no variant for that usage: isbn is
// keyword-only, description has no keyword subfield, and the numeric/date
// attributes are not analyzed.
var fieldVariants = map[Attribute]struct{ analyzed, exact string }{
	AttrTitle:       {"title", "title.keyword"},
	AttrAuthor:      {"author", "author.keyword"},
	AttrPublisher:   {"publisher", "publisher.keyword"},
	AttrISBN:        {"", "isbn"},
	AttrDescription: {"description", ""},
	AttrCategories:  {"categories", "categories.keyword"},
	AttrRating:      {"", "rating"},
	AttrPublishDate: {"", "publish_date"},
	AttrPageCount:   {"", "page_count"},
}

// Resolve maps a logical attribute and intended usage to the corresponding
// physical field variant. It is pure and stateless, and fails when the
// attribute has no variant for the requested usage.
func Resolve(attr Attribute, usage Usage) (Field, error) {
	variants, ok := fieldVariants[attr]
	if !ok {
		return Field{}, fmt.Errorf("resolve field: unknown attribute %q", attr)
	}

	name := variants.exact
	if usage == RelevanceMatch {
		name = variants.analyzed
	}
	if name == "" {
		return Field{}, fmt.Errorf("resolve field: attribute %q has no variant for the requested usage", attr)
	}
	return Field{Name: name}, nil
}

// mustResolve resolves fields for the fixed attribute set the builders
// reference. The variants table is static, so a miss is a programming error.
func mustResolve(attr Attribute, usage Usage) Field {
	f, err := Resolve(attr, usage)
	if err != nil {
		panic(err)
	}
	return f
}
