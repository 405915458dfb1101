package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	obsctx "github.com/01382253386/ai-hr-decision-platform/internal/observability"
)

// Consumer consumes audit jobs with read-committed isolation and runs them
// through a fixed worker pool.
type Consumer struct {
	session *kgo.GroupTransactSession
	jobs    domain.AuditJobRepository
	results domain.AuditResultRepository
	ai      domain.AIClient

	groupID   string
	maxTokens int
	workers   int

	jobQueue chan *kgo.Record
	shutdown chan struct{}
}

// NewConsumer constructs a Consumer for the audit topic.
func NewConsumer(brokers []string, groupID string, jobs domain.AuditJobRepository, results domain.AuditResultRepository, ai domain.AIClient, maxTokens, workers int) (*Consumer, error) {
	return newConsumerWithTransactionalID(brokers, groupID, "hr-audit-consumer", jobs, results, ai, maxTokens, workers)
}

func newConsumerWithTransactionalID(brokers []string, groupID, transactionalID string, jobs domain.AuditJobRepository, results domain.AuditResultRepository, ai domain.AIClient, maxTokens, workers int) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if workers <= 0 {
		workers = 2
	}

	// Ensure the topic exists before joining the group.
	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	defer tempClient.Close()
	if err := createTopicIfNotExists(context.Background(), tempClient, TopicAudit, 1, 1); err != nil {
		slog.Warn("audit topic creation failed", slog.String("topic", TopicAudit), slog.Any("error", err))
	}

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)

	session, err := kgo.NewGroupTransactSession(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(TopicAudit),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda transactional session: %w", err)
	}

	slog.Info("audit consumer created",
		slog.Any("brokers", brokers),
		slog.String("group_id", groupID),
		slog.Int("workers", workers))
	return &Consumer{
		session:   session,
		jobs:      jobs,
		results:   results,
		ai:        ai,
		groupID:   groupID,
		maxTokens: maxTokens,
		workers:   workers,
		jobQueue:  make(chan *kgo.Record, workers*2),
		shutdown:  make(chan struct{}),
	}, nil
}

// Start consumes until the context is cancelled. It blocks.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting audit consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", TopicAudit),
		slog.Int("workers", c.workers))

	for i := 0; i < c.workers; i++ {
		go c.worker(ctx, i)
	}
	go c.fetchLoop(ctx)

	<-ctx.Done()
	close(c.shutdown)
	return ctx.Err()
}

func (c *Consumer) fetchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		default:
		}

		fetches := c.session.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				if errors.Is(err.Err, context.Canceled) {
					return
				}
				slog.Error("fetch error",
					slog.String("topic", err.Topic),
					slog.Int("partition", int(err.Partition)),
					slog.Any("error", err.Err))
			}
			time.Sleep(2 * time.Second)
			continue
		}
		fetches.EachRecord(func(record *kgo.Record) {
			select {
			case c.jobQueue <- record:
			case <-ctx.Done():
			}
		})
	}
}

func (c *Consumer) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case record := <-c.jobQueue:
			if record == nil {
				return
			}
			if err := c.processRecord(ctx, record); err != nil {
				slog.Error("audit record processing failed",
					slog.Int("worker_id", id),
					slog.Int64("offset", record.Offset),
					slog.Any("error", err))
			}
		}
	}
}

// processRecord decodes one audit task and runs it through HandleAudit.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) error {
	tracer := otel.Tracer("queue.consumer")
	ctx, span := tracer.Start(ctx, "ProcessAuditJob")
	defer span.End()

	var payload domain.AuditTaskPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	// Correlate worker logs with the originating API request.
	if payload.RequestID != "" {
		ctx = obsctx.ContextWithRequestID(ctx, payload.RequestID)
		ctx = obsctx.ContextWithLogger(ctx,
			obsctx.LoggerFromContext(ctx).With(slog.String("request_id", payload.RequestID)))
	}

	return HandleAudit(ctx, c.jobs, c.results, c.ai, c.maxTokens, payload)
}

// Close closes the consumer session.
func (c *Consumer) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	select {
	case <-c.shutdown:
	default:
		close(c.shutdown)
	}
	return nil
}
