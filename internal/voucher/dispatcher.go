package voucher

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/models"
)

const (
	defaultDispatcherWorkers = 2
	defaultDispatcherQueue   = 64
	allocationTimeout        = 30 * time.Second
)

// allocationTask is one deferred webhook allocation.
type allocationTask struct {
	eventID   uint64
	amount    float64
	userID    uint64
	reference string
}

// Dispatcher runs webhook-triggered allocations off the request path.
// Each task's outcome is written back to its WebhookEvent audit row, so
// deferred failures are recorded rather than silently dropped.
type Dispatcher struct {
	db        *gorm.DB
	allocator *Allocator

	tasks    chan allocationTask
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher constructs a dispatcher with default queue and worker sizes.
func NewDispatcher(db *gorm.DB, allocator *Allocator) *Dispatcher {
	return &Dispatcher{
		db:        db,
		allocator: allocator,
		tasks:     make(chan allocationTask, defaultDispatcherQueue),
		workers:   defaultDispatcherWorkers,
	}
}

// Start launches the worker goroutines. Workers exit when the context
// is cancelled or Stop closes the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
	log.WithField("workers", d.workers).Info("webhook allocation dispatcher started")
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.tasks) })
	d.wg.Wait()
}

// Enqueue hands an allocation to the workers without blocking the
// caller. It reports false when the queue is full.
func (d *Dispatcher) Enqueue(eventID uint64, amount float64, userID uint64, reference string) bool {
	select {
	case d.tasks <- allocationTask{eventID: eventID, amount: amount, userID: userID, reference: reference}:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-d.tasks:
			if !ok {
				return
			}
			d.process(task)
		}
	}
}

// process allocates a voucher for one webhook charge and records the
// outcome on the event row. It runs detached from the originating
// request's lifetime.
func (d *Dispatcher) process(task allocationTask) {
	ctx, cancel := context.WithTimeout(context.Background(), allocationTimeout)
	defer cancel()

	claimed, errAllocate := d.allocator.Allocate(ctx, task.amount, task.userID, task.reference)
	if errAllocate != nil {
		log.WithError(errAllocate).WithFields(log.Fields{
			"reference": task.reference,
			"amount":    task.amount,
		}).Error("deferred webhook allocation failed")
		d.updateEvent(ctx, task.eventID, models.WebhookStatusFailed, errAllocate.Error())
		return
	}

	log.WithFields(log.Fields{
		"voucher":   claimed.Code,
		"reference": task.reference,
	}).Info("deferred webhook allocation completed")
	d.updateEvent(ctx, task.eventID, models.WebhookStatusProcessed, "")
}

func (d *Dispatcher) updateEvent(ctx context.Context, eventID uint64, status, detail string) {
	if eventID == 0 {
		return
	}
	if errUpdate := d.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{"status": status, "error": detail}).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("event_id", eventID).Error("update webhook event failed")
	}
}
