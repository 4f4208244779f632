// Package analytics records search and build events. Events feed an
// in-process Aggregator and, when Kafka is enabled, are published in batches
// to the analytics topic.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/kafka"
)

// Publisher writes a batch of events to the broker.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events and flushes them to the Publisher when a batch
// fills or the flush interval elapses. Track never blocks the caller; events
// are dropped when the buffer is full.
type Collector struct {
	publisher     Publisher
	aggregator    *Aggregator
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

// NewCollector builds a collector. publisher may be nil, in which case
// events only reach the aggregator.
func NewCollector(publisher Publisher, aggregator *Aggregator, cfg config.KafkaConfig) *Collector {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		aggregator:    aggregator,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It returns immediately; Close waits for the
// loop to drain.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
		"publishing", c.publisher != nil,
	)
}

func (c *Collector) TrackSearch(event SearchEvent) {
	if c.aggregator != nil {
		c.aggregator.RecordSearch(event)
	}
	c.enqueue(kafka.Event{Key: string(event.Type), Value: event})
}

func (c *Collector) TrackBuild(event BuildEvent) {
	if c.aggregator != nil {
		c.aggregator.RecordBuild(event)
	}
	c.enqueue(kafka.Event{Key: event.BuildID, Value: event})
}

// Close stops accepting events and waits for the final flush.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) enqueue(event kafka.Event) {
	if c.publisher == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "key", event.Key)
	}
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 || c.publisher == nil {
			batch = batch[:0]
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("analytics batch flush failed", "batch_size", len(batch), "error", err)
		} else {
			c.logger.Debug("analytics batch flushed", "events", len(batch))
		}
		batch = make([]kafka.Event, 0, c.batchSize)
	}
	finalFlush := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(flushCtx)
	}

	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				finalFlush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			c.drain(&batch)
			finalFlush()
			return
		}
	}
}

func (c *Collector) drain(batch *[]kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			*batch = append(*batch, event)
		default:
			return
		}
	}
}
