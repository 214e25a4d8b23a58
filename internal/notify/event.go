package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Kind names a notification event.
type Kind string

const (
	KindUserRegistered  Kind = "user.registered"
	KindUserLogin       Kind = "user.login"
	KindProfileUpdated  Kind = "user.profile_updated"
	KindPasswordChanged Kind = "user.password_changed"
	KindResumeCreated   Kind = "resume.created"
	KindResumeUpdated   Kind = "resume.updated"
	KindResumeDeleted   Kind = "resume.deleted"
	KindPasswordReset   Kind = "auth.password_reset"
)

// Event describes something a user did. UserEmail is the actor, not
// necessarily the recipient.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	UserEmail   string    `json:"userEmail"`
	ResumeTitle string    `json:"resumeTitle,omitempty"`
	Fields      []string  `json:"fields,omitempty"`
	ResetToken  string    `json:"resetToken,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Notifier delivers a single event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(ev Event)
}

// Readiness reports whether a notifier can deliver. An unready notifier is
// replaced by a logging no-op at wiring time.
type Readiness struct {
	Ready  bool
	Reason string
}

func Ready() Readiness { return Readiness{Ready: true} }

func NotReady(reason string) Readiness { return Readiness{Reason: reason} }

func (r Readiness) String() string {
	if r.Ready {
		return "ready"
	}
	return "not ready: " + r.Reason
}

// EncodeEvent and DecodeEvent are the queue payload codec.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Kind == "" {
		return Event{}, fmt.Errorf("decode event: kind is required")
	}
	return ev, nil
}
