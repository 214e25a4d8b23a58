package notify

import (
	"context"
	"fmt"
	"time"

	"resume-builder/internal/queue"
)

// QueueNotifier hands events to a queue; a worker delivers them later.
type QueueNotifier struct {
	client queue.Client
	now    func() time.Time
}

func NewQueueNotifier(client queue.Client) (*QueueNotifier, Readiness) {
	if client == nil {
		return &QueueNotifier{now: time.Now}, NotReady("queue client is not configured")
	}
	return &QueueNotifier{client: client, now: time.Now}, Ready()
}

func (q *QueueNotifier) Notify(ctx context.Context, ev Event) error {
	if q.client == nil {
		return fmt.Errorf("queue notifier: no client")
	}
	payload, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return q.client.Send(ctx, queue.Message{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		EnqueuedAt: q.now().UTC().Format(time.RFC3339),
		Payload:    payload,
	})
}
