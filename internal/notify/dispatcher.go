package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxInFlight = 32
)

// Dispatcher fans events out to a Notifier on background goroutines. Delivery
// failures are logged and counted, never returned.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	slots    chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewDispatcher(n Notifier, timeout time.Duration, maxInFlight int) *Dispatcher {
	if n == nil {
		n = LogNotifier{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	return &Dispatcher{
		notifier: n,
		timeout:  timeout,
		slots:    make(chan struct{}, maxInFlight),
		now:      time.Now,
	}
}

// Publish schedules delivery. When every slot is busy the event is dropped.
func (d *Dispatcher) Publish(ev Event) {
	if d == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.now().UTC()
	}
	select {
	case d.slots <- struct{}{}:
	default:
		metrics.IncNotifyDropped()
		telemetry.Warn("notify.dropped", map[string]any{"kind": ev.Kind, "event_id": ev.ID})
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		d.deliver(ev)
	}()
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncNotifyFailed()
			telemetry.Error("notify.panic", map[string]any{"kind": ev.Kind, "event_id": ev.ID, "error": rec})
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, ev); err != nil {
		metrics.IncNotifyFailed()
		telemetry.Error("notify.failed", map[string]any{
			"kind":     ev.Kind,
			"event_id": ev.ID,
			"user_id":  ev.UserID,
			"error":    err.Error(),
		})
		return
	}
	metrics.IncNotifySent()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier records events without delivering them.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	telemetry.Info("notify.skipped", map[string]any{"kind": ev.Kind, "event_id": ev.ID, "user_id": ev.UserID})
	return nil
}

// Discard drops events. Useful where no publisher is wired.
type Discard struct{}

func (Discard) Publish(Event) {}
