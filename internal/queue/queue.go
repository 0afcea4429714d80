package queue

import (
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"homescope/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one batch. Returned errors are logged by the queue.
type Handler func([]*models.Property) error

// PropertyQueue is a bounded in-memory queue of import batches consumed by a
// fixed number of workers. Every batch is delivered to each subscribed
// handler exactly once.
type PropertyQueue struct {
	items    chan []*models.Property
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	workers  sync.WaitGroup
	logger   *logrus.Logger
	handlers []Handler
}

// NewPropertyQueue creates a new property queue with the specified buffer size
func NewPropertyQueue(bufferSize int, logger *logrus.Logger) *PropertyQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &PropertyQueue{
		items:    make(chan []*models.Property, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push adds a batch of properties to the queue without blocking.
func (q *PropertyQueue) Push(properties []*models.Property) error {
	// The read lock is held across the send so Close cannot close the
	// channel underneath it.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- properties:
		q.logger.WithField("batch_size", len(properties)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushAll queues every batch or none of them. The write lock keeps other
// pushers out between the capacity check and the sends.
func (q *PropertyQueue) PushAll(batches [][]*models.Property) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.maxSize-len(q.items) < len(batches) {
		return ErrQueueFull
	}

	for _, batch := range batches {
		select {
		case q.items <- batch:
		default:
			// Workers only ever drain, so reserved room cannot disappear.
			return ErrQueueFull
		}
	}
	q.logger.WithField("batches", len(batches)).Debug("Pushed batches to queue")
	return nil
}

// Subscribe adds a handler function that will be called for each batch
func (q *PropertyQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches the given number of workers. Calling it twice is a no-op.
func (q *PropertyQueue) Start(workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process()
	}
}

// process handles the queue processing loop until the queue is closed and drained.
func (q *PropertyQueue) process() {
	defer q.workers.Done()
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *PropertyQueue) processBatch(batch []*models.Property) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("batch_size", len(batch)).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting new batches, lets the workers drain what is queued
// and waits for them to finish.
func (q *PropertyQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.workers.Wait()
	return nil
}

// Len returns the current number of batches in the queue
func (q *PropertyQueue) Len() int {
	return len(q.items)
}

// Free returns how many more batches the queue can hold right now.
func (q *PropertyQueue) Free() int {
	return q.maxSize - len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *PropertyQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
