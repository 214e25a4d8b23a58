package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{}, f.err
}

func TestSQSClientSend(t *testing.T) {
	api := &fakeSQS{}
	client := NewSQSClientWithAPI(api, "https://sqs.local/q")
	if err := client.Send(context.Background(), Message{ID: "1", Kind: "resume.created", Payload: []byte(`{}`)}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(api.inputs))
	}
	in := api.inputs[0]
	if *in.QueueUrl != "https://sqs.local/q" {
		t.Fatalf("unexpected queue url %q", *in.QueueUrl)
	}
	msg, err := DecodeMessage([]byte(*in.MessageBody))
	if err != nil || msg.Kind != "resume.created" {
		t.Fatalf("unexpected body %q (%v)", *in.MessageBody, err)
	}
	if *in.MessageAttributes["kind"].StringValue != "resume.created" {
		t.Fatalf("expected kind attribute")
	}
}

func TestSQSClientWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	client := NewSQSClientWithAPI(&fakeSQS{err: boom}, "q")
	if err := client.Send(context.Background(), Message{Kind: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
