package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ticketwatch/internal/config"
	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/internal/platform"
	"github.com/jmylchreest/ticketwatch/internal/version"
	"github.com/jmylchreest/ticketwatch/pkg/notifier"
	"github.com/jmylchreest/ticketwatch/pkg/poller"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the configured events and notify on availability",
	Long: `Watch runs the poll cycle until interrupted: every enabled platform's
events are checked in order, available events are sent to Discord, and the
process sleeps a random interval between poll.interval_min and
poll.interval_max seconds.

Examples:
  # Run until Ctrl-C
  ticketwatch watch

  # Print notifications to the log instead of sending them
  ticketwatch watch --dry-run

  # One cycle, then exit
  ticketwatch watch --once`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	flags.Bool("dry-run", false, "log notifications instead of sending them")
	flags.Bool("once", false, "run a single cycle and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	once, _ := cmd.Flags().GetBool("once")

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if err := cfg.Validate(!dryRun); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := buildNotifier(ctx, cfg, dryRun)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		return err
	}

	env := platform.NewEnv(cfg)
	defer func() {
		if err := env.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	scanners, err := platform.Scanners(env)
	if err != nil {
		logger.Error("failed to configure platforms", "error", err)
		return err
	}
	if len(scanners) == 0 {
		return fmt.Errorf("no enabled platform has events configured")
	}

	targets := make([]poller.Scanner, len(scanners))
	names := make([]string, len(scanners))
	for i, s := range scanners {
		targets[i] = s
		names[i] = s.Name()
	}

	lo, hi := cfg.Poll.Interval()
	p := poller.New(targets, n, poller.Interval{Min: lo, Max: hi})

	logger.Info("ticketwatch started",
		"version", version.Version,
		"platforms", names,
		"notifier", n.Name(),
		"interval_min", lo,
		"interval_max", hi)

	if once {
		report := p.RunOnce(ctx)
		logInfo("cycle finished in %s: %d notification(s), %d delivery failure(s)",
			report.Duration.Round(time.Millisecond), report.Notifications, report.DeliveryFailures)
		return nil
	}

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("ticketwatch stopped")
	return nil
}

// buildNotifier returns the Discord sink, or the log sink for dry runs.
func buildNotifier(ctx context.Context, cfg *config.Config, dryRun bool) (notifier.Notifier, error) {
	if dryRun {
		return notifier.Log{}, nil
	}
	return notifier.NewDiscord(ctx, notifier.DiscordConfig{
		Token:       cfg.Discord.Token,
		ChannelID:   cfg.Discord.ChannelID,
		ChannelName: cfg.Discord.ChannelName,
		WebhookURL:  cfg.Discord.WebhookURL,
		UserAgent:   version.UserAgent(),
	})
}
