package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"resume-builder/internal/bootstrap"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2

	// build is swapped in tests.
	build = func() (*bootstrap.App, error) {
		cfg := config.Load()
		telemetry.SetLevel(cfg.LogLevel)
		return bootstrap.Build(cfg)
	}
)

func initApp() {
	app, err := build()
	if err != nil {
		initErr = err
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
	telemetry.Info("lambda.cold_start", map[string]any{"env": app.Config.Env})
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil || ginLambda == nil {
		return unavailable(), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    respond.CodeInternal,
		Message: "Service unavailable",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}
