package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avitale/rocketbridge/internal/bus"
	"github.com/avitale/rocketbridge/internal/config"
	"github.com/avitale/rocketbridge/internal/connector"
	"github.com/avitale/rocketbridge/internal/driver/rocketchat"
	"github.com/avitale/rocketbridge/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect the session and bridge bus traffic until interrupted",
	RunE:  runRun,
}

var runConfigPath string

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to rocketbridge.yaml")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Session.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bus.New()
	go b.Dispatch(ctx)

	session := cfg.Session.DisplayName()

	relay, err := bus.NewRelay(bus.RelayConfig{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, b, session, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis relay unavailable, continuing without it")
	} else if relay != nil {
		defer relay.Close()
		relay.Mirror(
			connector.Topic(session, "connecting"),
			connector.Topic(session, "connected"),
			connector.Topic(session, "error"),
			connector.Topic(session, "message"),
			connector.Topic(session, "joined"),
			connector.Topic(session, "parted"),
		)
		go relay.Run(ctx, connector.Topic(session, "send"))
		logger.Info().Str("session", session).Msg("redis relay enabled")
	}

	client := rocketchat.New(rocketchat.Config{Logger: logger})
	defer client.Close()

	conn := connector.New(b, client, logger)
	defer conn.Close()

	state := conn.Connect(ctx, cfg.Session)
	if !state.Connected() {
		return fmt.Errorf("session %s failed to connect", state.Name)
	}

	logger.Info().
		Str("session", state.Name).
		Strs("channels", state.Channels()).
		Msg("bridging")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}
