package queue

import (
	"strings"
	"testing"
)

func TestMessageRoundTripKeepsPayloadVerbatim(t *testing.T) {
	msg := Message{
		ID:         "evt-1",
		Kind:       "user.registered",
		RequestID:  "request-456",
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Payload:    []byte(`{"email":"a@b.co"}`),
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	if !strings.Contains(string(payload), `"version":1`) {
		t.Fatalf("expected default version, got %s", payload)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.ID != msg.ID || got.Kind != msg.Kind || got.RequestID != msg.RequestID {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
	if string(got.Payload) != `{"email":"a@b.co"}` {
		t.Fatalf("payload changed: %s", got.Payload)
	}
}

func TestDecodeMessageRequiresKind(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{"id":"x"}`)); err == nil {
		t.Fatalf("expected missing kind error")
	}
	if _, err := DecodeMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
