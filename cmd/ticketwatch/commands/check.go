package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ticketwatch/internal/config"
	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/internal/output"
	"github.com/jmylchreest/ticketwatch/internal/platform"
	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check one event page and print its ticket records",
	Long: `Check runs a platform's extractor once against a single URL and prints
the records it produced. Nothing is sent to Discord.

Examples:
  ticketwatch check -p tixcraft -u "https://tixcraft.com/activity/game/25_example"
  ticketwatch check -p kktix -u "https://kktix.com/events/example" --format json
  ticketwatch check -p ibon -u "https://ticket.ibon.com.tw/ActivityInfo/Details/1" --format yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	flags := checkCmd.Flags()
	flags.StringP("platform", "p", "", "platform: tixcraft, kktix, ibon (required)")
	flags.StringP("url", "u", "", "event page URL (required)")
	flags.StringP("event", "e", "", "event label for the report (default: configured name for the URL)")
	flags.String("format", "table", "output format: json, jsonl, yaml, table")

	_ = checkCmd.MarkFlagRequired("platform")
	_ = checkCmd.MarkFlagRequired("url")
}

func runCheck(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("platform")
	url, _ := cmd.Flags().GetString("url")
	event, _ := cmd.Flags().GetString("event")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	w, err := output.NewWriter(os.Stdout, output.Format(format))
	if err != nil {
		return err
	}

	pc, ok := cfg.Platforms[name]
	if !ok {
		pc = config.PlatformConfig{Enabled: true}
	}
	if event == "" {
		event = eventName(pc, url)
	}

	env := platform.NewEnv(cfg)
	defer func() {
		if err := env.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	ext, err := platform.New(name, env, pc)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("checking page", "platform", name, "extractor", ext.Name(), "url", url)
	records := ext.Extract(ctx, url)

	if err := w.Write(output.NewReport(name, event, url, records)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if len(records) == 0 {
		logInfo("no ticket records found")
	} else if !ticket.AnyAvailable(records) {
		logInfo("%d record(s), none available", len(records))
	}
	return nil
}

// eventName returns the configured name for url, or "" when it is not
// configured. The last matching entry wins.
func eventName(pc config.PlatformConfig, url string) string {
	var name string
	for _, ev := range pc.Events {
		if ev.URL == url {
			name = ev.Name
		}
	}
	return name
}
