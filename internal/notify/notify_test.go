package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-builder/internal/queue"
	"resume-builder/internal/shared/telemetry"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (r *recordingNotifier) Notify(ctx context.Context, ev Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func quietLogs(t *testing.T) *strings.Builder {
	t.Helper()
	var buf strings.Builder
	t.Cleanup(telemetry.SetOutput(&buf))
	return &buf
}

func TestDispatcherDeliversAndStampsEvents(t *testing.T) {
	quietLogs(t)
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, time.Second, 4)
	d.Publish(Event{Kind: KindResumeCreated, UserID: "u1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one delivery, got %d", rec.count())
	}
	if rec.events[0].ID == "" || rec.events[0].OccurredAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", rec.events[0])
	}
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	logs := quietLogs(t)
	d := NewDispatcher(&recordingNotifier{err: errors.New("smtp down")}, time.Second, 1)
	d.Publish(Event{Kind: KindUserLogin})
	_ = d.Wait(context.Background())
	if !strings.Contains(logs.String(), "notify.failed") {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	logs := quietLogs(t)
	rec := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(rec, time.Second, 1)
	d.Publish(Event{Kind: KindUserLogin})
	d.Publish(Event{Kind: KindUserLogin})
	close(rec.block)
	_ = d.Wait(context.Background())

	if rec.count() != 1 {
		t.Fatalf("expected second event to be dropped, got %d deliveries", rec.count())
	}
	if !strings.Contains(logs.String(), "notify.dropped") {
		t.Fatalf("expected drop to be logged")
	}
}

func TestMailNotifierReadiness(t *testing.T) {
	if _, r := NewMailNotifier(SMTPSettings{}); r.Ready {
		t.Fatalf("expected not ready without host")
	}
	if _, r := NewMailNotifier(SMTPSettings{Host: "smtp.local", Port: 587}); r.Ready || !strings.Contains(r.Reason, "SMTP_FROM") {
		t.Fatalf("expected missing from, got %s", r)
	}
	if _, r := NewMailNotifier(SMTPSettings{Host: "smtp.local", Port: 587, From: "no-reply@x.io"}); !r.Ready {
		t.Fatalf("expected ready, got %s", r)
	}
}

type sentMail struct {
	addr string
	to   []string
	msg  string
}

func TestMailNotifierRoutesRecipients(t *testing.T) {
	var sent []sentMail
	n, _ := NewMailNotifier(SMTPSettings{
		Host: "smtp.local", Port: 2525, From: "no-reply@x.io",
		AdminEmail: "admin@x.io", AppURL: "https://app.x.io/",
	})
	n.WithSender(func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, to: to, msg: string(msg)})
		return nil
	})

	ctx := context.Background()
	if err := n.Notify(ctx, Event{Kind: KindResumeUpdated, UserName: "Jane <b>", UserEmail: "jane@x.io", ResumeTitle: "CV", Fields: []string{"skills", "title"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.Notify(ctx, Event{Kind: KindPasswordReset, UserEmail: "jane@x.io", ResetToken: "abc123"}); err != nil {
		t.Fatalf("notify reset: %v", err)
	}

	if len(sent) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(sent))
	}
	if sent[0].addr != "smtp.local:2525" || sent[0].to[0] != "admin@x.io" {
		t.Fatalf("activity mail should go to admin, got %+v", sent[0])
	}
	if !strings.Contains(sent[0].msg, "Subject: Resume Updated - Resume Builder") ||
		!strings.Contains(sent[0].msg, "skills, title") ||
		!strings.Contains(sent[0].msg, "Jane &lt;b&gt;") {
		t.Fatalf("unexpected activity mail:\n%s", sent[0].msg)
	}
	if sent[1].to[0] != "jane@x.io" || !strings.Contains(sent[1].msg, "https://app.x.io/reset-password/abc123") {
		t.Fatalf("unexpected reset mail: %+v", sent[1])
	}
}

func TestMailNotifierSkipsWithoutAdmin(t *testing.T) {
	called := false
	n, _ := NewMailNotifier(SMTPSettings{Host: "smtp.local", Port: 25, From: "a@x.io"})
	n.WithSender(func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	})
	if err := n.Notify(context.Background(), Event{Kind: KindUserLogin}); err != nil || called {
		t.Fatalf("expected silent skip, err=%v called=%v", err, called)
	}
}

func TestRenderRejectsUnknownKind(t *testing.T) {
	if _, _, err := Render(Event{Kind: "nope"}, ""); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

type fakeQueue struct {
	msgs []queue.Message
}

func (f *fakeQueue) Send(_ context.Context, msg queue.Message) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeQueue) Close() error { return nil }

func TestQueueNotifierEnvelopesEvent(t *testing.T) {
	q := &fakeQueue{}
	n, ready := NewQueueNotifier(q)
	if !ready.Ready {
		t.Fatalf("expected ready")
	}
	ev := Event{ID: "evt-1", Kind: KindResumeDeleted, UserID: "u1", ResumeTitle: "Old"}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(q.msgs) != 1 || q.msgs[0].Kind != "resume.deleted" || q.msgs[0].ID != "evt-1" {
		t.Fatalf("unexpected messages %+v", q.msgs)
	}
	decoded, err := DecodeEvent(q.msgs[0].Payload)
	if err != nil || decoded.ResumeTitle != "Old" {
		t.Fatalf("unexpected payload %s (%v)", q.msgs[0].Payload, err)
	}

	if _, ready := NewQueueNotifier(nil); ready.Ready {
		t.Fatalf("expected not ready without client")
	}
}
