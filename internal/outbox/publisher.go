package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tutorlane/bookingd/libs/db"
	"github.com/tutorlane/bookingd/libs/kafkax"
	otelx "github.com/tutorlane/bookingd/libs/otel"
)

// Publisher drains staged events to Kafka. Delivery is at-least-once: rows
// are marked published only after the broker accepts the batch, so
// consumers must deduplicate on the event_id header.
type Publisher struct {
	pool      *db.Pool
	repo      *Repository
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		pool:      pool,
		repo:      repo,
		logger:    logger,
		brokers:   kafkax.SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Balancer: &kafka.Hash{}, // key by aggregate id keeps per-booking order
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.drainBatch(ctx, writer); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// drainBatch claims a batch, ships it, and marks it published, all under
// one transaction so a crash mid-batch re-delivers rather than loses.
func (p *Publisher) drainBatch(ctx context.Context, writer *kafka.Writer) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pending, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, e := range pending {
		msgCtx := otelx.ContextWithTraceContext(ctx, e.Traceparent, e.Tracestate)
		msg := kafka.Message{
			Topic: e.EventType,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: kafkax.InjectTraceHeaders(msgCtx, []kafka.Header{
				{Key: "event_id", Value: []byte(e.EventID)},
				{Key: "event_type", Value: []byte(e.EventType)},
			}),
		}
		msgs = append(msgs, msg)
		ids = append(ids, e.ID)
	}

	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.logger.Debug("outbox batch published", "events", len(msgs))
	return nil
}
