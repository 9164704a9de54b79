package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

const sampleYAML = `
discord:
  token: bot-token
  channel_id: "123456"
poll:
  interval_min: 30
  interval_max: 60
  request_gap: 2s
browser:
  settle_delay: 5s
platforms:
  tixcraft:
    skip_header_row: true
    events:
      - name: Spring Tour
        url: https://tixcraft.example/activity/game/spring
      - name: Encore
        url: https://tixcraft.example/activity/game/encore
  kktix:
    enabled: false
  ibon:
    sold_out: ["售完"]
    events:
      - name: Arena Night
        url: https://ticket.ibon.example/ActivityInfo/Details/1
`

func load(t *testing.T, yaml string) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

// --- Load Tests ---

func TestLoad_Defaults(t *testing.T) {
	cfg := load(t, "")

	if cfg.Poll.IntervalMin != 5 || cfg.Poll.IntervalMax != 10 {
		t.Errorf("expected 5..10 interval, got %d..%d", cfg.Poll.IntervalMin, cfg.Poll.IntervalMax)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("expected 30s fetch timeout, got %v", cfg.Fetch.Timeout)
	}
	if !cfg.Browser.Headless || cfg.Browser.SettleDelay != 3*time.Second || cfg.Browser.CheckTimeout != 90*time.Second {
		t.Errorf("unexpected browser defaults %+v", cfg.Browser)
	}
	if cfg.Browser.ScreenshotDir != "screenshots" {
		t.Errorf("unexpected screenshot dir %q", cfg.Browser.ScreenshotDir)
	}
	if diff := cmp.Diff([]string{"tixcraft", "kktix", "ibon"}, cfg.EnabledPlatforms()); diff != "" {
		t.Errorf("all platforms should be enabled by default (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	cfg := load(t, sampleYAML)

	if cfg.Poll.RequestGap != 2*time.Second {
		t.Errorf("expected 2s request gap, got %v", cfg.Poll.RequestGap)
	}
	if cfg.Browser.SettleDelay != 5*time.Second {
		t.Errorf("expected 5s settle delay, got %v", cfg.Browser.SettleDelay)
	}

	tix := cfg.Platforms["tixcraft"]
	wantEvents := []Event{
		{Name: "Spring Tour", URL: "https://tixcraft.example/activity/game/spring"},
		{Name: "Encore", URL: "https://tixcraft.example/activity/game/encore"},
	}
	if diff := cmp.Diff(wantEvents, tix.Events); diff != "" {
		t.Errorf("events must keep declared order (-want +got):\n%s", diff)
	}
	if !tix.Enabled || !tix.SkipHeaderRow {
		t.Errorf("unexpected tixcraft config %+v", tix)
	}

	if diff := cmp.Diff([]string{"tixcraft", "ibon"}, cfg.EnabledPlatforms()); diff != "" {
		t.Errorf("EnabledPlatforms() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"售完"}, cfg.Platforms["ibon"].SoldOut); diff != "" {
		t.Errorf("sold-out override mismatch (-want +got):\n%s", diff)
	}

	lo, hi := cfg.Poll.Interval()
	if lo != 30*time.Second || hi != time.Minute {
		t.Errorf("Interval() = %v, %v", lo, hi)
	}
}

func TestLoad_EnvAliases(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("DISCORD_CHANNEL_ID", "42")
	t.Setenv("CHECK_INTERVAL_MIN", "7")
	t.Setenv("ENABLE_KKTIX", "false")

	cfg := load(t, "")

	if cfg.Discord.Token != "env-token" || cfg.Discord.ChannelID != "42" {
		t.Errorf("expected discord settings from env, got %+v", cfg.Discord)
	}
	if cfg.Poll.IntervalMin != 7 {
		t.Errorf("expected interval_min 7, got %d", cfg.Poll.IntervalMin)
	}
	if diff := cmp.Diff([]string{"tixcraft", "ibon"}, cfg.EnabledPlatforms()); diff != "" {
		t.Errorf("EnabledPlatforms() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ChannelName(t *testing.T) {
	cfg := load(t, "")
	if cfg.Discord.ChannelName != "測試" {
		t.Errorf("expected default channel name, got %q", cfg.Discord.ChannelName)
	}

	t.Setenv("DISCORD_CHANNEL_NAME", "alerts")
	cfg = load(t, "")
	if cfg.Discord.ChannelName != "alerts" {
		t.Errorf("expected channel name from env, got %q", cfg.Discord.ChannelName)
	}
}

func TestLoad_ChromeBinaries(t *testing.T) {
	cfg := load(t, "browser:\n  chrome_binaries: [chromium, /opt/chrome/chrome]\n")
	if diff := cmp.Diff([]string{"chromium", "/opt/chrome/chrome"}, cfg.Browser.ChromeBinaries); diff != "" {
		t.Errorf("ChromeBinaries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "plain")
	t.Setenv("TICKETWATCH_DISCORD_TOKEN", "prefixed")

	cfg := load(t, "")
	if cfg.Discord.Token != "prefixed" {
		t.Errorf("expected prefixed variable to win, got %q", cfg.Discord.Token)
	}
}

// --- Validate Tests ---

func TestValidate_OK(t *testing.T) {
	if err := load(t, sampleYAML).Validate(true); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "interval min",
			yaml: "poll: {interval_min: 0, interval_max: 5}",
			want: "Poll.IntervalMin must be at least 1",
		},
		{
			name: "interval order",
			yaml: "poll: {interval_min: 10, interval_max: 5}",
			want: "Poll.IntervalMax must be greater than or equal to IntervalMin",
		},
		{
			name: "event url",
			yaml: "platforms: {kktix: {events: [{name: x, url: not-a-url}]}}",
			want: "must be a valid URL",
		},
		{
			name: "event name",
			yaml: "platforms: {kktix: {events: [{url: 'https://kktix.example/events/x'}]}}",
			want: "is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := load(t, tt.yaml).Validate(false)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidate_Notifier(t *testing.T) {
	cfg := load(t, "")

	if err := cfg.Validate(false); err != nil {
		t.Errorf("dry run should not need a notifier, got %v", err)
	}
	if err := cfg.Validate(true); err == nil || !strings.Contains(err.Error(), "discord") {
		t.Errorf("expected discord error, got %v", err)
	}

	cfg.Discord.Token = "bot-token"
	if err := cfg.Validate(true); err != nil {
		t.Errorf("token with the default channel name should be enough, got %v", err)
	}

	cfg.Discord.ChannelName = ""
	if err := cfg.Validate(true); err == nil {
		t.Error("token without a channel should not be enough")
	}

	cfg.Discord.Token = ""
	cfg.Discord.WebhookURL = "https://discord.example/api/webhooks/1/x"
	if err := cfg.Validate(true); err != nil {
		t.Errorf("webhook alone should be enough, got %v", err)
	}
}

// --- LoadDotEnv Tests ---

func TestLoadDotEnv(t *testing.T) {
	const key = "TICKETWATCH_TEST_DOTENV_VALUE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}
