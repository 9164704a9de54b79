// Package config loads the static ticketwatch configuration. It is read once
// at startup and treated as read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete configuration.
type Config struct {
	Discord   DiscordConfig             `mapstructure:"discord"`
	Poll      PollConfig                `mapstructure:"poll"`
	Fetch     FetchConfig               `mapstructure:"fetch"`
	Browser   BrowserConfig             `mapstructure:"browser"`
	Platforms map[string]PlatformConfig `mapstructure:"platforms" validate:"dive"`
}

// DiscordConfig selects the notification target.
type DiscordConfig struct {
	Token      string `mapstructure:"token"`
	ChannelID  string `mapstructure:"channel_id"`
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`

	// ChannelName is looked up across the bot's guilds when ChannelID is empty.
	ChannelName string `mapstructure:"channel_name"`
}

// Configured reports whether a delivery target is set.
func (d DiscordConfig) Configured() bool {
	return (d.Token != "" && (d.ChannelID != "" || d.ChannelName != "")) || d.WebhookURL != ""
}

// PollConfig controls the poll cycle. Interval bounds are in seconds.
type PollConfig struct {
	IntervalMin int           `mapstructure:"interval_min" validate:"min=1"`
	IntervalMax int           `mapstructure:"interval_max" validate:"gtefield=IntervalMin"`
	RequestGap  time.Duration `mapstructure:"request_gap" validate:"min=0"`
}

// Interval returns the sleep bounds as durations.
func (p PollConfig) Interval() (time.Duration, time.Duration) {
	return time.Duration(p.IntervalMin) * time.Second, time.Duration(p.IntervalMax) * time.Second
}

// FetchConfig controls plain HTTP page fetches.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=0"`
	UserAgent string        `mapstructure:"user_agent"`
	// RenderFallback retries a failed plain fetch in the browser.
	RenderFallback bool `mapstructure:"render_fallback"`
}

// BrowserConfig controls browser-driven checks.
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless"`
	Stealth       bool          `mapstructure:"stealth"`
	SettleDelay   time.Duration `mapstructure:"settle_delay" validate:"min=0"`
	CheckTimeout  time.Duration `mapstructure:"check_timeout" validate:"min=0"`
	ScreenshotDir string        `mapstructure:"screenshot_dir"`

	// ChromePath pins the browser executable. Otherwise the first of
	// ChromeBinaries (or the built-in names) found on PATH is used.
	ChromePath     string   `mapstructure:"chrome_path"`
	ChromeBinaries []string `mapstructure:"chrome_binaries"`
}

// PlatformConfig configures one platform.
type PlatformConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// SkipHeaderRow drops the first table row (table platforms only).
	SkipHeaderRow bool `mapstructure:"skip_header_row"`

	// SoldOut overrides the platform's sold-out vocabulary: exact statuses
	// for table platforms, substrings for shadow-DOM platforms.
	SoldOut []string `mapstructure:"sold_out"`

	// Events are checked in declared order.
	Events []Event `mapstructure:"events" validate:"dive"`
}

// Event is one watched event page.
type Event struct {
	Name string `mapstructure:"name" validate:"required"`
	URL  string `mapstructure:"url" validate:"required,url"`
}

// Built-in platform names.
var platformNames = []string{"tixcraft", "kktix", "ibon"}

// envAliases binds the plain environment names used by earlier deployments.
var envAliases = map[string]string{
	"discord.token":              "DISCORD_TOKEN",
	"discord.channel_id":         "DISCORD_CHANNEL_ID",
	"discord.channel_name":       "DISCORD_CHANNEL_NAME",
	"discord.webhook_url":        "DISCORD_WEBHOOK_URL",
	"poll.interval_min":          "CHECK_INTERVAL_MIN",
	"poll.interval_max":          "CHECK_INTERVAL_MAX",
	"platforms.tixcraft.enabled": "ENABLE_TIXCRAFT",
	"platforms.kktix.enabled":    "ENABLE_KKTIX",
	"platforms.ibon.enabled":     "ENABLE_IBON",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("discord.channel_name", "測試")

	v.SetDefault("poll.interval_min", 5)
	v.SetDefault("poll.interval_max", 10)
	v.SetDefault("poll.request_gap", "0s")

	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.render_fallback", false)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", false)
	v.SetDefault("browser.settle_delay", "3s")
	v.SetDefault("browser.check_timeout", "90s")
	v.SetDefault("browser.screenshot_dir", "screenshots")

	for _, name := range platformNames {
		v.SetDefault("platforms."+name+".enabled", true)
	}
}

// BindEnv enables TICKETWATCH_* overrides plus the plain aliases.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("TICKETWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range envAliases {
		envKey := "TICKETWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envKey, alias)
	}
}

// LoadDotEnv loads environment files into the process environment. Missing
// files are ignored; variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load decodes the configuration held by v. Defaults and env bindings must
// already be registered.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Platforms == nil {
		cfg.Platforms = map[string]PlatformConfig{}
	}
	return &cfg, nil
}

// ValidationError lists every rule the configuration breaks.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks c. requireNotifier demands a Discord target.
func (c *Config) Validate(requireNotifier bool) error {
	var problems []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			problems = append(problems, fmt.Sprintf("%s %s", fieldPath(e), formatValidationError(e)))
		}
	}

	if requireNotifier && !c.Discord.Configured() {
		problems = append(problems, "discord requires token with channel_id or channel_name, or webhook_url")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// EnabledPlatforms returns the enabled platform names in built-in order,
// followed by any other configured names.
func (c *Config) EnabledPlatforms() []string {
	var names []string
	seen := map[string]bool{}
	for _, name := range platformNames {
		seen[name] = true
		if p, ok := c.Platforms[name]; ok && p.Enabled {
			names = append(names, name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(c.Platforms)) {
		if !seen[name] && c.Platforms[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// fieldPath strips the root struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gtefield":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
