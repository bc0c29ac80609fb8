package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dchukwu/cloudjanitor/internal/app"
	"github.com/dchukwu/cloudjanitor/internal/cloud"
	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/handler"
	"github.com/dchukwu/cloudjanitor/internal/notify"
)

func main() {
	// .env is optional; real credentials usually come from the provider chain
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cliApp := &cli.App{
		Name:  "cloudjanitor",
		Usage: "tag-driven scheduling, retention cleanup, and security audits for AWS resources",
		Commands: append(handlerCommands(logger), &cli.Command{
			Name:  "daemon",
			Usage: "run handlers on cron schedules from a jobs file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "config",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "path to jobs yaml",
				},
				&cli.DurationFlag{
					Name:  "run-timeout",
					Usage: "per-job run timeout (0 disables)",
					Value: 15 * time.Minute,
				},
			},
			Action: func(c *cli.Context) error {
				return runDaemon(c, logger)
			},
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func handlerCommands(logger *slog.Logger) []*cli.Command {
	usages := map[string]string{
		handler.NameEC2Schedule:   "stop Auto-Stop tagged instances, start Auto-Start tagged ones",
		handler.NameS3Cleanup:     "delete bucket objects past the retention period",
		handler.NameS3CleanupLite: "compact bucket cleanup (dry run by default)",
		handler.NameS3Audit:       "report buckets without encryption or with public access",
		handler.NameEBSSnapshot:   "create volume snapshots and prune aged ones",
	}

	cmds := make([]*cli.Command, 0, len(usages))
	for _, name := range handler.Names() {
		name := name
		cmds = append(cmds, &cli.Command{
			Name:  name,
			Usage: usages[name],
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "event",
					Aliases: []string{"e"},
					Usage:   "invocation payload: inline JSON object or @path/to/file.json",
				},
				&cli.StringFlag{
					Name:  "region",
					Usage: "AWS region (defaults to AWS_REGION)",
				},
			},
			Action: func(c *cli.Context) error {
				return runHandler(c, name, logger)
			},
		})
	}
	return cmds
}

func runHandler(c *cli.Context, name string, logger *slog.Logger) error {
	event, err := parseEvent(c.String("event"))
	if err != nil {
		return err
	}

	region := c.String("region")
	if region == "" {
		region = config.Region()
	}

	sess, err := cloud.NewSession(c.Context, cloud.Options{Region: region})
	if err != nil {
		return err
	}

	h, err := handler.New(name, sess, logger)
	if err != nil {
		return err
	}

	resp := h.Handle(c.Context, event)
	fmt.Println(resp.Body)
	if resp.StatusCode != 200 {
		return cli.Exit(fmt.Sprintf("%s returned status %d", name, resp.StatusCode), 1)
	}
	return nil
}

func runDaemon(c *cli.Context, logger *slog.Logger) error {
	cfg, err := config.LoadDaemonConfig(c.String("config"))
	if err != nil {
		return err
	}

	region := cfg.Region
	if region == "" {
		region = config.Region()
	}

	sess, err := cloud.NewSession(c.Context, cloud.Options{Region: region})
	if err != nil {
		return err
	}

	dispatcher, err := notify.NewDispatcher(cfg.Notifications, sess.SNS())
	if err != nil {
		return err
	}

	factory := func(name string) (handler.Handler, error) {
		return handler.New(name, sess, logger)
	}

	return app.RunDaemon(c.Context, cfg, factory, dispatcher, logger, c.Duration("run-timeout"))
}

// parseEvent accepts an inline JSON object or, with a leading @, a file path.
func parseEvent(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	data := []byte(raw)
	if strings.HasPrefix(raw, "@") {
		var err error
		data, err = os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return nil, fmt.Errorf("read event file: %w", err)
		}
	}

	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("parse event payload: %w", err)
	}
	return event, nil
}
