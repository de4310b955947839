package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		attr  Attribute
		usage Usage
		want  string
	}{
		{"title analyzed", AttrTitle, RelevanceMatch, "title"},
		{"title exact", AttrTitle, ExactFilterOrSort, "title.keyword"},
		{"author exact", AttrAuthor, ExactFilterOrSort, "author.keyword"},
		{"publisher exact", AttrPublisher, ExactFilterOrSort, "publisher.keyword"},
		{"isbn exact", AttrISBN, ExactFilterOrSort, "isbn"},
		{"description analyzed", AttrDescription, RelevanceMatch, "description"},
		{"categories exact", AttrCategories, ExactFilterOrSort, "categories.keyword"},
		{"rating exact", AttrRating, ExactFilterOrSort, "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Resolve(tt.attr, tt.usage)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name)
		})
	}
}

func TestResolveMissingVariant(t *testing.T) {
	_, err := Resolve(AttrISBN, RelevanceMatch)
	assert.Error(t, err, "isbn has no analyzed variant")

	_, err = Resolve(AttrDescription, ExactFilterOrSort)
	assert.Error(t, err, "description has no exact variant")

	_, err = Resolve(AttrRating, RelevanceMatch)
	assert.Error(t, err)
}

func TestResolveUnknownAttribute(t *testing.T) {
	_, err := Resolve(Attribute("shelf"), ExactFilterOrSort)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown attribute")
}
