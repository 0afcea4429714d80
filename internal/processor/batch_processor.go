package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"homescope/server/config"
	"homescope/server/internal/models"
	"homescope/server/internal/queue"
)

// BatchWriter persists a batch of properties atomically.
type BatchWriter interface {
	UpsertProperties(ctx context.Context, batch []*models.Property) error
}

// Metrics receives batch outcomes. A nil Metrics is allowed.
type Metrics interface {
	RecordImportBatch(outcome string, size int)
}

// BatchProcessor handles the processing of property batches
type BatchProcessor struct {
	store   BatchWriter
	logger  *logrus.Logger
	config  *config.Config
	queue   *queue.PropertyQueue
	metrics Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(store BatchWriter, queue *queue.PropertyQueue, config *config.Config, logger *logrus.Logger, metrics Metrics) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		store:   store,
		queue:   queue,
		config:  config,
		logger:  logger,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes the processor once and runs ProcessorCount queue workers.
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop closes the queue and waits for queued batches to drain. If ctx expires
// first, in-flight retries are abandoned.
func (p *BatchProcessor) Stop(ctx context.Context) {
	drained := make(chan struct{})
	go func() {
		_ = p.queue.Close()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.Warn("Shutdown deadline reached, abandoning pending import batches")
		p.cancel()
		<-drained
	}
	p.cancel()
}

// Submit splits properties into batches of MaxBatchSize and queues them. It
// refuses the whole submission when the queue cannot hold every batch.
func (p *BatchProcessor) Submit(properties []*models.Property) (int, error) {
	size := p.config.BatchProcessing.MaxBatchSize
	if len(properties) == 0 {
		return 0, nil
	}

	batches := make([][]*models.Property, 0, (len(properties)+size-1)/size)
	for i := 0; i < len(properties); i += size {
		batches = append(batches, properties[i:min(i+size, len(properties))])
	}

	if err := p.queue.PushAll(batches); err != nil {
		return 0, fmt.Errorf("failed to queue %d batches: %w", len(batches), err)
	}
	return len(batches), nil
}

// processBatch handles a single batch of properties with transaction and retry logic
func (p *BatchProcessor) processBatch(batch []*models.Property) error {
	var err error
	attempts := 0
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"attempt":     attempt,
				"max_retries": p.config.BatchProcessing.MaxRetries,
				"batch_size":  len(batch),
			}).Info("Retrying batch processing")
			select {
			case <-p.ctx.Done():
				p.record("cancelled", len(batch))
				return fmt.Errorf("batch processing cancelled: %w", p.ctx.Err())
			case <-time.After(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second):
			}
		}

		attempts++
		err = p.store.UpsertProperties(p.ctx, batch)
		if err == nil {
			p.logger.WithField("batch_size", len(batch)).Info("Successfully processed batch")
			p.record("ok", len(batch))
			return nil
		}

		p.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":    attempts,
			"batch_size": len(batch),
		}).Error("Batch processing failed")

		// Invalid rows fail identically on every attempt.
		if errors.Is(err, models.ErrInvalidProperty) {
			break
		}
	}

	p.record("failed", len(batch))
	return fmt.Errorf("failed to process batch after %d attempts: %w", attempts, err)
}

func (p *BatchProcessor) record(outcome string, size int) {
	if p.metrics != nil {
		p.metrics.RecordImportBatch(outcome, size)
	}
}
