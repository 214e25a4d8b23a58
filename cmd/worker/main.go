package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"resume-builder/internal/bootstrap"
	"resume-builder/internal/queue"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 120
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	concurrency := max(1, envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency))
	shutdownTimeout := time.Duration(envInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close(context.Background())

	var wg sync.WaitGroup
	switch cfg.QueueBackend {
	case "amqp":
		client, ok := app.Queue.(*queue.AMQPClient)
		if !ok {
			log.Fatal("AMQP_URL is required for the amqp backend")
		}
		runAMQP(ctx, app, client, concurrency, &wg)
	default:
		if strings.TrimSpace(cfg.SQSQueueURL) == "" {
			log.Fatal("SQS_QUEUE_URL is required")
		}
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			log.Fatalf("load aws config: %v", err)
		}
		visibility := envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
		runSQS(ctx, app, sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL, visibility, concurrency, &wg)
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight messages", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight messages")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func runSQS(ctx context.Context, app *bootstrap.App, client sqsAPI, queueURL string, visibility, concurrency int, wg *sync.WaitGroup) {
	sem := make(chan struct{}, concurrency)
	log.Printf("worker started backend=sqs queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, visibility)

	for {
		if ctx.Err() != nil {
			return
		}
		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibility),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleSQSMessage(ctx, app, client, queueURL, m)
			}(msg)
		}
	}
}

// handleSQSMessage deletes the message on success and on permanent failure.
// Retryable failures stay on the queue until the visibility timeout expires.
func handleSQSMessage(ctx context.Context, app *bootstrap.App, client sqsAPI, queueURL string, msg sqstypes.Message) {
	fields := baseFields(msg)
	err := workerproc.HandleMessage(ctx, app, aws.ToString(msg.Body))
	switch {
	case err == nil:
		if deleteMessage(ctx, client, queueURL, msg) {
			telemetry.Info("worker.notify.completed", fields)
		}
	case workerproc.Retryable(err):
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.failed", fields)
	default:
		fields["error"] = err.Error()
		fields["body_len"] = workerproc.ComputeMeta(aws.ToString(msg.Body)).BodyLen
		telemetry.Error("worker.notify.dropped", fields)
		deleteMessage(ctx, client, queueURL, msg)
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.notify.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg)
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.delete_failed", fields)
		return false
	}
	return true
}

type amqpConsumer interface {
	Consume(ctx context.Context, prefetch int) (<-chan queue.Delivery, error)
}

func runAMQP(ctx context.Context, app *bootstrap.App, client amqpConsumer, concurrency int, wg *sync.WaitGroup) {
	deliveries, err := client.Consume(ctx, concurrency)
	if err != nil {
		log.Fatalf("amqp consume: %v", err)
	}
	log.Printf("worker started backend=amqp concurrency=%d", concurrency)

	sem := make(chan struct{}, concurrency)
	for d := range deliveries {
		select {
		case <-ctx.Done():
			_ = d.Nack(true)
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(d queue.Delivery) {
			defer wg.Done()
			defer func() { <-sem }()
			handleDelivery(ctx, app, d)
		}(d)
	}
}

func handleDelivery(ctx context.Context, app *bootstrap.App, d queue.Delivery) {
	err := workerproc.HandleMessage(ctx, app, d.Body)
	switch {
	case err == nil:
		_ = d.Ack()
	case workerproc.Retryable(err):
		telemetry.Error("worker.notify.failed", map[string]any{"error": err.Error()})
		_ = d.Nack(true)
	default:
		telemetry.Error("worker.notify.dropped", map[string]any{"error": err.Error()})
		_ = d.Nack(false)
	}
}

func baseFields(msg sqstypes.Message) map[string]any {
	return map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	parsed, err := strconv.Atoi(msg.Attributes["ApproximateReceiveCount"])
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
