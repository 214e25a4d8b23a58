package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"resume-builder/internal/bootstrap"
	"resume-builder/internal/notify"
	"resume-builder/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates the envelope or the event inside it could not be read.
// Redelivering such a message never helps.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrDeliver indicates the mailer failed after the event was decoded.
type ErrDeliver struct {
	EventID string
	Kind    notify.Kind
	Err     error
}

func (e ErrDeliver) Error() string {
	if e.Err == nil {
		return "deliver notification"
	}
	return "deliver notification: " + e.Err.Error()
}

func (e ErrDeliver) Unwrap() error { return e.Err }

// ParseMessage validates the envelope and decodes the notification event it carries.
func ParseMessage(body string) (notify.Event, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return notify.Event{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return notify.Event{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	ev, err := notify.DecodeEvent(msg.Payload)
	if err != nil {
		return notify.Event{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if ev.ID == "" {
		ev.ID = msg.ID
	}
	return ev, meta, nil
}

// Retryable reports whether a failed message should go back on the queue.
func Retryable(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	return err != nil && !errors.As(err, &empty) && !errors.As(err, &decode)
}

// HandleMessage decodes a queued notification and hands it to the mailer.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil || app.Mailer == nil {
		return errors.New("mailer not configured")
	}
	ev, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	if err := app.Mailer.Notify(ctx, ev); err != nil {
		return ErrDeliver{EventID: ev.ID, Kind: ev.Kind, Err: err}
	}
	return nil
}
