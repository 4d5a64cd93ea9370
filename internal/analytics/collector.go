package analytics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
)

const (
	defaultBufferSize = 10000
	defaultBatchSize  = 100
	flushInterval     = time.Second
	drainTimeout      = 5 * time.Second
)

// Publisher is the Kafka side of the collector.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector queues assessment events in memory and publishes them in
// batches from one goroutine, so a slow broker never delays a prediction.
// A batch goes out when it reaches batchSize or every flushInterval.
type Collector struct {
	publisher Publisher
	events    chan AssessmentEvent
	batchSize int
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}
}

// NewCollector creates a Collector. m may be nil.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		publisher: publisher,
		events:    make(chan AssessmentEvent, bufferSize),
		batchSize: defaultBatchSize,
		interval:  flushInterval,
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It stops when ctx is cancelled or Close
// is called, flushing whatever is still queued.
func (c *Collector) Start(ctx context.Context) {
	c.logger.Info("analytics collector started", "buffer_size", cap(c.events), "batch_size", c.batchSize)
	go c.run(ctx)
}

// Track enqueues an event without blocking. Events are dropped when the
// queue is full.
func (c *Collector) Track(event AssessmentEvent) {
	select {
	case c.events <- event:
	default:
		c.count("dropped", 1)
		c.logger.Warn("assessment event dropped, queue full", "type", event.Type, "user_id", event.UserID)
	}
}

// Close stops accepting events and waits for the final flush. Start must
// have been called.
func (c *Collector) Close() {
	close(c.events)
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				c.finalFlush(batch)
				return
			}
			batch = append(batch, toKafka(event))
			if len(batch) >= c.batchSize {
				batch = c.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = c.flush(ctx, batch)
		case <-ctx.Done():
			c.finalFlush(c.drain(batch))
			return
		}
	}
}

// drain appends every event still queued without waiting for more.
func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
}

func (c *Collector) finalFlush(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for len(batch) > 0 {
		n := min(len(batch), c.batchSize)
		c.flush(ctx, batch[:n])
		batch = batch[n:]
	}
}

// flush publishes batch and returns it emptied for reuse.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.count("failed", len(batch))
		c.logger.Error("failed to publish assessment events", "count", len(batch), "error", err)
	} else {
		c.count("published", len(batch))
	}
	return batch[:0]
}

func (c *Collector) count(outcome string, n int) {
	if c.metrics != nil {
		c.metrics.AnalyticsEventsTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

// toKafka keys events by user so one user's events stay ordered.
func toKafka(event AssessmentEvent) kafka.Event {
	return kafka.Event{
		Key:   strconv.FormatInt(event.UserID, 10),
		Value: event,
	}
}
