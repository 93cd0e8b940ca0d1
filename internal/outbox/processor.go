package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"reconciler/internal/domain"
	kafka_infra "reconciler/internal/infrastructure/kafka"
	"reconciler/internal/repository/outbox_repo"
)

const maxRetryBackoff = 5 * time.Minute

// Processor relays pending outbox messages to Kafka.
type Processor struct {
	repo         outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	defaultTopic string
	pollInterval time.Duration
	pollTimeout  time.Duration
	batchSize    int
	now          func() time.Time
	logger       *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewProcessor(
	repo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	defaultTopic string,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Processor {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Processor{
		repo:         repo,
		producer:     producer,
		defaultTopic: defaultTopic,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		batchSize:    batchSize,
		now:          time.Now,
		logger:       logger.With(zap.String("component", "outbox_processor")),
		stop:         make(chan struct{}),
	}
}

// Start polls in the background until ctx is cancelled or Stop is called.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Outbox processor context cancelled")
				return
			case <-p.stop:
				p.logger.Info("Outbox processor stopped")
				return
			case <-ticker.C:
				p.ProcessBatch(ctx)
			}
		}
	}()
}

// Stop signals the polling loop and waits for the in-flight batch.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Signaling outbox processor to stop")
		close(p.stop)
	})
	if p.done != nil {
		<-p.done
	}
}

// ProcessBatch publishes one batch of due messages inside a single
// transaction and returns how many were sent. Messages that fail to publish
// stay pending and are retried after an exponential backoff.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	var sent, retried []string
	err := p.repo.InTx(ctx, func(querier domain.Querier) error {
		queryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
		messages, err := p.repo.GetPendingMessages(queryCtx, querier, p.batchSize, p.now())
		cancel()
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		p.logger.Info("Found pending outbox messages", zap.Int("count", len(messages)))

		for _, msg := range messages {
			topic := msg.Topic
			if topic == "" {
				topic = p.defaultTopic
			}
			if err := p.producer.Produce(ctx, msg.Key, topic, msg.Payload); err != nil {
				next := p.now().Add(p.retryBackoff(msg.Attempts + 1))
				p.logger.Error("Failed to send outbox message to Kafka",
					zap.String("message_id", msg.ID),
					zap.String("message_type", msg.MessageType),
					zap.String("topic", topic),
					zap.Int("attempt", msg.Attempts+1),
					zap.Time("next_attempt_at", next),
					zap.Error(err))
				if err := p.repo.ScheduleRetry(ctx, querier, msg.ID, next, err.Error()); err != nil {
					return fmt.Errorf("failed to schedule retry of outbox message %s: %w", msg.ID, err)
				}
				retried = append(retried, msg.ID)
				continue
			}
			sent = append(sent, msg.ID)
		}

		return p.repo.MarkMessagesAsSent(ctx, querier, sent, p.now())
	})
	if err != nil {
		p.logger.Error("Outbox batch rolled back", zap.Strings("sent_ids", sent), zap.Error(err))
		return 0
	}
	if len(sent) == 0 && len(retried) == 0 {
		p.logger.Debug("No pending outbox messages")
		return 0
	}

	p.logger.Info("Outbox batch processed", zap.Int("sent", len(sent)), zap.Int("retried", len(retried)))
	return len(sent)
}

// retryBackoff doubles the poll interval per attempt, capped at maxRetryBackoff.
func (p *Processor) retryBackoff(attempt int) time.Duration {
	backoff := p.pollInterval
	if backoff <= 0 {
		backoff = time.Second
	}
	for i := 1; i < attempt && backoff < maxRetryBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	return backoff
}
