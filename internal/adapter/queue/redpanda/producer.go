// Package redpanda provides the Redpanda/Kafka queue for audit jobs.
//
// Audits are produced transactionally so a job is either fully enqueued
// or not at all, and consumed with read-committed isolation by the
// worker group.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// TopicAudit is the Kafka topic for audit jobs.
const TopicAudit = "audit-jobs"

// Producer wraps a transactional Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	// Serializes transactions so concurrent enqueues do not interleave.
	txLock chan struct{}
}

// NewProducer constructs a transactional Producer against the given brokers.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "hr-audit-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID, which lets tests run producers side by side.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	slog.Info("creating audit producer", slog.Any("brokers", brokers), slog.String("transactional_id", transactionalID))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicAudit, 1, 1); err != nil {
		// The topic may already exist or be auto-created by the broker.
		slog.Warn("audit topic creation failed", slog.String("topic", TopicAudit), slog.Any("error", err))
	}

	return &Producer{client: client, txLock: make(chan struct{}, 1)}, nil
}

// EnqueueAudit publishes an audit task within a transaction and returns the
// job ID as the task ID.
func (p *Producer) EnqueueAudit(ctx domain.Context, payload domain.AuditTaskPayload) (string, error) {
	select {
	case p.txLock <- struct{}{}:
		defer func() { <-p.txLock }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		p.abort(ctx)
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: TopicAudit,
		// Job ID as the key keeps per-job ordering.
		Key:   []byte(payload.JobID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "job_id", Value: []byte(payload.JobID)},
		},
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		p.abort(ctx)
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	observability.AuditsEnqueuedTotal.Inc()
	slog.Info("audit job enqueued",
		slog.String("topic", TopicAudit),
		slog.String("job_id", payload.JobID),
		slog.Int("decisions", len(payload.Decisions)))
	return payload.JobID, nil
}

func (p *Producer) abort(ctx context.Context) {
	if err := p.client.EndTransaction(ctx, kgo.TryAbort); err != nil {
		slog.Error("failed to abort transaction", slog.Any("error", err))
	}
}

// Ping reports broker connectivity; used by readiness checks.
func (p *Producer) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

// Close closes the underlying client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
