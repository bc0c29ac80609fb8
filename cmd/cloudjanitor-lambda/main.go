package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/dchukwu/cloudjanitor/internal/cloud"
	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/handler"
)

// One binary serves all five functions; each deployment sets HANDLER to pick
// which one it is.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	name := os.Getenv("HANDLER")
	if name == "" {
		logger.Error("HANDLER environment variable not set", "known", handler.Names())
		os.Exit(1)
	}

	ctx := context.Background()
	sess, err := cloud.NewSession(ctx, cloud.Options{Region: config.Region()})
	if err != nil {
		logger.Error("session init failed", "error", err)
		os.Exit(1)
	}

	h, err := handler.New(name, sess, logger)
	if err != nil {
		logger.Error("handler init failed", "handler", name, "error", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event events.CloudWatchEvent) (handler.Response, error) {
		logger.Info("invoked", "handler", h.Name(), "event_id", event.ID, "source", event.Source)

		// the scheduled event's detail doubles as the payload override map
		var payload map[string]any
		if len(event.Detail) > 0 {
			if err := json.Unmarshal(event.Detail, &payload); err != nil {
				logger.Warn("ignoring unparseable event detail", "error", err)
			}
		}

		return h.Handle(ctx, payload), nil
	})
}
