package elasticsearch

import (
	"github.com/searchify/searchify/internal/domain"
)

// Initializer creates one index with its settings and mapping at startup.
// The list of initializers is static and passed into New; no runtime
// discovery is involved.
type Initializer struct {
	Index   string
	Mapping string
}

// Initializers returns the statically-registered index initializers.
func Initializers() []Initializer {
	return []Initializer{
		{Index: domain.IndexName, Mapping: booksMapping()},
	}
}

// booksMapping returns the settings and mapping of the books index. Text
// fields run through a custom analyzer (standard tokenizer, lowercase,
// asciifolding); the attributes used for filtering, sorting, and bucket
// keys carry a keyword variant. Descriptions are analyzed-only.
func booksMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "book_text_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "title":        { "type": "text", "analyzer": "book_text_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "author":       { "type": "text", "analyzer": "book_text_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "publisher":    { "type": "text", "analyzer": "book_text_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "isbn":         { "type": "keyword" },
      "description":  { "type": "text", "analyzer": "book_text_analyzer" },
      "categories":   { "type": "text", "analyzer": "book_text_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "publish_date": { "type": "date" },
      "page_count":   { "type": "integer" },
      "rating":       { "type": "double" }
    }
  }
}`
}
