package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/maltedev/ddtech-scraper/internal/models"
	"github.com/maltedev/ddtech-scraper/internal/scraper"
	"github.com/maltedev/ddtech-scraper/internal/storage"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	EventTypeProductScraped EventType = "product.scraped"
	EventTypeRunCompleted   EventType = "run.completed"
)

const source = "ddtech-scraper"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Event is the envelope written to the stream's data field.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

type RunCompletedPayload struct {
	CategoryURL string   `json:"category_url"`
	Total       int      `json:"total"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	Saved       int      `json:"saved"`
	Cancelled   bool     `json:"cancelled"`
	FailedURLs  []string `json:"failed_urls,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// Publisher appends scrape events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	clock  clock.Clock
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, clk clock.Clock, logger *slog.Logger) *Publisher {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		clock:  clk,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *Publisher) Name() string {
	return "redis"
}

// Write publishes one product.scraped event per non-empty record.
func (p *Publisher) Write(ctx context.Context, records []*models.ProductRecord) error {
	if len(records) == 0 {
		return storage.ErrNoRecords
	}

	for _, rec := range records {
		if rec.IsZero() {
			continue
		}
		if _, err := p.publish(ctx, EventTypeProductScraped, rec.URL, rec); err != nil {
			return err
		}
	}

	return nil
}

// PublishRun emits a run.completed event for a finished batch.
func (p *Publisher) PublishRun(ctx context.Context, summary *scraper.RunSummary) (string, error) {
	payload := RunCompletedPayload{
		CategoryURL: summary.CategoryURL,
		Total:       summary.Total,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		Saved:       summary.Saved,
		Cancelled:   summary.Cancelled,
		DurationMS:  summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	}
	for _, f := range summary.Failures {
		payload.FailedURLs = append(payload.FailedURLs, f.URL)
	}

	return p.publish(ctx, EventTypeRunCompleted, summary.CategoryURL, payload)
}

func (p *Publisher) publish(ctx context.Context, eventType EventType, key string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: p.clock.Now().UTC(),
		Source:    source,
		Payload:   body,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      string(eventType),
			"event_id":  event.ID,
			"key":       key,
			"timestamp": fmt.Sprintf("%d", event.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish %s to redis: %w", eventType, err)
	}

	p.logger.Debug("event published", "type", eventType, "event_id", event.ID, "stream_id", id)

	return id, nil
}
