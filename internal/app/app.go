package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/searchify/searchify/pkg/health"
	"github.com/searchify/searchify/pkg/kafka"

	"github.com/searchify/searchify/internal/config"
	"github.com/searchify/searchify/internal/engine"
	"github.com/searchify/searchify/internal/engine/elasticsearch"
	"github.com/searchify/searchify/internal/engine/memory"
	"github.com/searchify/searchify/internal/event"
	handlerhttp "github.com/searchify/searchify/internal/handler/http"
	"github.com/searchify/searchify/internal/service"
)

// App wires the search engine, service, HTTP server, and Kafka consumers.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	consumers []*kafka.Consumer
}

// NewApp constructs the application. With the elasticsearch engine the
// index is created on startup if absent.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	healthHandler := health.NewHandler()

	var eng engine.SearchEngine
	switch cfg.SearchEngine {
	case config.EngineMemory:
		eng = memory.New()
	default:
		esEngine, err := elasticsearch.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, elasticsearch.Initializers(), logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		healthHandler.Register("elasticsearch", esEngine.Ping)
		eng = esEngine
	}

	healthHandler.Register("kafka", func(ctx context.Context) error {
		return kafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	bookService := service.NewBookService(eng, logger)
	bookHandler := handlerhttp.NewBookHandler(bookService, logger)
	router := handlerhttp.NewRouter(bookHandler, healthHandler, logger)

	bookConsumer := event.NewBookConsumer(bookService, logger)
	consumers := make([]*kafka.Consumer, 0, 2)
	for _, topic := range []string{event.TopicBookUpserted, event.TopicBookDeleted} {
		consumers = append(consumers, kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   topic,
		}, bookConsumer.Handle, logger))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		server:    server,
		consumers: consumers,
	}, nil
}

// Run starts the HTTP server and the Kafka consumers and blocks until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, c := range a.consumers {
		go func(c *kafka.Consumer) {
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}(c)
	}

	select {
	case <-ctx.Done():
		return a.Shutdown()
	case err := <-errCh:
		shutdownErr := a.Shutdown()
		if shutdownErr != nil {
			a.logger.Error("shutdown after failure", slog.String("error", shutdownErr.Error()))
		}
		return err
	}
}

// Shutdown stops the HTTP server gracefully and closes the consumers.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("http shutdown: %w", err)
	}
	for _, c := range a.consumers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("consumer close: %w", err)
		}
	}
	return firstErr
}
