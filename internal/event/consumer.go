package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/searchify/searchify/pkg/errors"
	"github.com/searchify/searchify/pkg/kafka"

	"github.com/searchify/searchify/internal/service"
)

// Topics the ingest consumer subscribes to. Upstream catalog services
// publish full book snapshots on upsert and the bare ISBN on delete.
var (
	TopicBookUpserted = kafka.Topic("book", "upserted")
	TopicBookDeleted  = kafka.Topic("book", "deleted")
)

// Event types carried on the topics above.
const (
	TypeBookUpserted = "book.upserted"
	TypeBookDeleted  = "book.deleted"
)

// BookEventData is the payload of a book ingest event. Deletes only carry
// the ISBN.
type BookEventData struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Publisher   string    `json:"publisher"`
	ISBN        string    `json:"isbn"`
	Description string    `json:"description"`
	Categories  []string  `json:"categories"`
	PublishDate time.Time `json:"publish_date"`
	PageCount   int       `json:"page_count"`
	Rating      float64   `json:"rating"`
}

// BookConsumer applies catalog events to the search index.
type BookConsumer struct {
	service *service.BookService
	logger  *slog.Logger
}

// NewBookConsumer creates a new book event consumer.
func NewBookConsumer(svc *service.BookService, logger *slog.Logger) *BookConsumer {
	return &BookConsumer{
		service: svc,
		logger:  logger,
	}
}

// Handle dispatches a single event. Unknown event types are logged and
// skipped so a topic can evolve without stalling the consumer group.
func (c *BookConsumer) Handle(ctx context.Context, evt *kafka.Event) error {
	switch evt.EventType {
	case TypeBookUpserted:
		return c.handleUpserted(ctx, evt)
	case TypeBookDeleted:
		return c.handleDeleted(ctx, evt)
	default:
		c.logger.WarnContext(ctx, "skipping unknown event type",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.EventID),
		)
		return nil
	}
}

func (c *BookConsumer) handleUpserted(ctx context.Context, evt *kafka.Event) error {
	var data BookEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return fmt.Errorf("decode book upserted event %s: %w", evt.EventID, err)
	}

	input := &service.BookInput{
		Title:       data.Title,
		Author:      data.Author,
		Publisher:   data.Publisher,
		ISBN:        data.ISBN,
		Description: data.Description,
		Categories:  data.Categories,
		PublishDate: data.PublishDate,
		PageCount:   data.PageCount,
		Rating:      data.Rating,
	}
	if err := c.service.Upsert(ctx, input); err != nil {
		return fmt.Errorf("apply book upserted event %s: %w", evt.EventID, err)
	}

	c.logger.InfoContext(ctx, "book upserted from event",
		slog.String("isbn", data.ISBN),
		slog.String("event_id", evt.EventID),
	)
	return nil
}

func (c *BookConsumer) handleDeleted(ctx context.Context, evt *kafka.Event) error {
	var data BookEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return fmt.Errorf("decode book deleted event %s: %w", evt.EventID, err)
	}

	err := c.service.Delete(ctx, data.ISBN)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("apply book deleted event %s: %w", evt.EventID, err)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		// Deletes are idempotent; the record may never have been indexed.
		c.logger.DebugContext(ctx, "delete event for unknown isbn",
			slog.String("isbn", data.ISBN),
			slog.String("event_id", evt.EventID),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "book deleted from event",
		slog.String("isbn", data.ISBN),
		slog.String("event_id", evt.EventID),
	)
	return nil
}
