package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmylchreest/ticketwatch/internal/logger"
)

// DefaultDiscordAPI is the Discord REST base URL.
const DefaultDiscordAPI = "https://discord.com/api/v10"

const defaultUserAgent = "DiscordBot (https://github.com/jmylchreest/ticketwatch, dev)"

// ErrChannelNotFound is returned when no text channel visible to the bot
// carries the configured name.
var ErrChannelNotFound = errors.New("discord channel not found")

// DiscordConfig selects the delivery target. A bot token with a channel
// takes precedence over a webhook URL. ChannelName is looked up once when
// ChannelID is empty.
type DiscordConfig struct {
	Token       string
	ChannelID   string
	ChannelName string
	WebhookURL  string

	// BaseURL overrides DefaultDiscordAPI.
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Discord posts messages to a Discord channel.
type Discord struct {
	http   *resty.Client
	config DiscordConfig
}

type discordMessage struct {
	Content string `json:"content"`
}

type discordGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type discordChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// Text and announcement channels accept messages.
const (
	channelTypeText         = 0
	channelTypeAnnouncement = 5
)

// NewDiscord creates a Discord notifier. With a token and channel name but
// no channel ID, the channel is resolved through the API before returning.
func NewDiscord(ctx context.Context, cfg DiscordConfig) (*Discord, error) {
	hasBot := cfg.Token != "" && (cfg.ChannelID != "" || cfg.ChannelName != "")
	if !hasBot && cfg.WebhookURL == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDiscordAPI
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", cfg.UserAgent)

	d := &Discord{http: client, config: cfg}
	if hasBot && cfg.ChannelID == "" {
		id, err := d.resolveChannel(ctx, cfg.ChannelName)
		switch {
		case err == nil:
			d.config.ChannelID = id
		case cfg.WebhookURL != "":
			logger.Warn("channel lookup failed, using webhook", "channel", cfg.ChannelName, "error", err)
		default:
			return nil, err
		}
	}
	return d, nil
}

// resolveChannel finds the first text channel called name across the bot's
// guilds, in the order the API lists them.
func (d *Discord) resolveChannel(ctx context.Context, name string) (string, error) {
	var guilds []discordGuild
	if err := d.get(ctx, "/users/@me/guilds", &guilds); err != nil {
		return "", fmt.Errorf("failed to list guilds: %w", err)
	}

	for _, g := range guilds {
		var channels []discordChannel
		if err := d.get(ctx, "/guilds/"+g.ID+"/channels", &channels); err != nil {
			return "", fmt.Errorf("failed to list channels of guild %s: %w", g.ID, err)
		}
		for _, c := range channels {
			if c.Name != name || (c.Type != channelTypeText && c.Type != channelTypeAnnouncement) {
				continue
			}
			logger.Info("discord channel resolved", "channel", name, "guild", g.Name, "id", c.ID)
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrChannelNotFound, name)
}

func (d *Discord) get(ctx context.Context, path string, out any) error {
	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bot "+d.config.Token).
		SetResult(out).
		Get(d.config.BaseURL + path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), excerpt(resp.String()))
	}
	return nil
}

// Name returns the sink identifier.
func (d *Discord) Name() string {
	return "discord"
}

// Send posts text, truncated to MaxMessageLength.
func (d *Discord) Send(ctx context.Context, text string) error {
	req := d.http.R().
		SetContext(ctx).
		SetBody(discordMessage{Content: Truncate(text)})

	url := d.config.WebhookURL
	if d.config.Token != "" && d.config.ChannelID != "" {
		url = d.config.BaseURL + "/channels/" + d.config.ChannelID + "/messages"
		req.SetHeader("Authorization", "Bot "+d.config.Token)
	}

	resp, err := req.Post(url)
	if err != nil {
		return &DeliveryError{Sink: d.Name(), Err: err}
	}
	if resp.IsError() {
		return &DeliveryError{
			Sink:       d.Name(),
			StatusCode: resp.StatusCode(),
			Body:       excerpt(resp.String()),
		}
	}

	logger.Debug("discord message delivered", "status", resp.StatusCode(), "length", len(text))
	return nil
}
