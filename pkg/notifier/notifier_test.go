package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

type captured struct {
	path    string
	auth    string
	content string
}

func discordServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		var msg discordMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		got.content = msg.Content
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

// --- Discord Tests ---

func TestNewDiscord_NotConfigured(t *testing.T) {
	tests := []DiscordConfig{
		{},
		{Token: "t"},
		{ChannelID: "c"},
		{ChannelName: "alerts"},
	}
	for _, cfg := range tests {
		if _, err := NewDiscord(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("NewDiscord(%+v) expected ErrNotConfigured, got %v", cfg, err)
		}
	}
}

func TestDiscord_SendBot(t *testing.T) {
	srv, got := discordServer(t, http.StatusOK, `{"id":"1"}`)

	d, err := NewDiscord(context.Background(), DiscordConfig{Token: "secret", ChannelID: "42", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewDiscord() error = %v", err)
	}
	if err := d.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got.path != "/channels/42/messages" {
		t.Errorf("unexpected path %q", got.path)
	}
	if got.auth != "Bot secret" {
		t.Errorf("unexpected authorization %q", got.auth)
	}
	if got.content != "hello" {
		t.Errorf("unexpected content %q", got.content)
	}
}

func TestDiscord_SendWebhook(t *testing.T) {
	srv, got := discordServer(t, http.StatusNoContent, "")

	d, err := NewDiscord(context.Background(), DiscordConfig{WebhookURL: srv.URL + "/api/webhooks/1/abc"})
	if err != nil {
		t.Fatalf("NewDiscord() error = %v", err)
	}
	if err := d.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.path != "/api/webhooks/1/abc" {
		t.Errorf("unexpected path %q", got.path)
	}
	if got.auth != "" {
		t.Error("webhook delivery must not send a bot token")
	}
}

func TestDiscord_SendRejected(t *testing.T) {
	srv, _ := discordServer(t, http.StatusForbidden, `{"message":"Missing Access"}`)

	d, _ := NewDiscord(context.Background(), DiscordConfig{Token: "t", ChannelID: "c", BaseURL: srv.URL})
	err := d.Send(context.Background(), "hi")

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if de.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", de.StatusCode)
	}
	if !strings.Contains(de.Body, "Missing Access") {
		t.Errorf("expected body excerpt, got %q", de.Body)
	}
}

func TestDiscord_SendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d, _ := NewDiscord(context.Background(), DiscordConfig{WebhookURL: url})
	err := d.Send(context.Background(), "hi")

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if de.StatusCode != 0 || de.Err == nil {
		t.Errorf("expected transport failure, got %+v", de)
	}
}

func TestDiscord_SendTruncates(t *testing.T) {
	srv, got := discordServer(t, http.StatusOK, "{}")

	d, _ := NewDiscord(context.Background(), DiscordConfig{WebhookURL: srv.URL})
	if err := d.Send(context.Background(), strings.Repeat("票", 2500)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if n := utf8.RuneCountInString(got.content); n != MaxMessageLength {
		t.Errorf("expected %d characters, got %d", MaxMessageLength, n)
	}
}

// guildServer serves two guilds and records where messages are posted.
func guildServer(t *testing.T) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		reply(w, `[{"id":"g1","name":"Home"},{"id":"g2","name":"Fans"}]`)
	})
	mux.HandleFunc("GET /guilds/g1/channels", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `[{"id":"c1","name":"general","type":0},{"id":"c2","name":"測試","type":2}]`)
	})
	mux.HandleFunc("GET /guilds/g2/channels", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `[{"id":"c3","name":"測試","type":0},{"id":"c4","name":"測試","type":0}]`)
	})
	mux.HandleFunc("POST /channels/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		reply(w, `{"id":"m1"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNewDiscord_ResolvesChannelName(t *testing.T) {
	srv, got := guildServer(t)

	d, err := NewDiscord(context.Background(), DiscordConfig{Token: "secret", ChannelName: "測試", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewDiscord() error = %v", err)
	}
	if got.auth != "Bot secret" {
		t.Errorf("lookup should authenticate as the bot, got %q", got.auth)
	}

	if err := d.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	// The voice channel in the first guild is skipped; the first text
	// channel with the name wins.
	if got.path != "/channels/c3/messages" {
		t.Errorf("unexpected path %q", got.path)
	}
}

func TestNewDiscord_ChannelIDSkipsLookup(t *testing.T) {
	srv, got := guildServer(t)

	d, err := NewDiscord(context.Background(), DiscordConfig{Token: "t", ChannelID: "c1", ChannelName: "測試", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewDiscord() error = %v", err)
	}
	if got.auth != "" {
		t.Error("expected no guild lookup when a channel ID is set")
	}
	_ = d.Send(context.Background(), "hi")
	if got.path != "/channels/c1/messages" {
		t.Errorf("unexpected path %q", got.path)
	}
}

func TestNewDiscord_ChannelNotFound(t *testing.T) {
	srv, _ := guildServer(t)

	_, err := NewDiscord(context.Background(), DiscordConfig{Token: "t", ChannelName: "missing", BaseURL: srv.URL})
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("expected channel name in error, got %v", err)
	}
}

func TestNewDiscord_LookupFailureFallsBackToWebhook(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized"}`))
	}))
	t.Cleanup(api.Close)
	hook, got := discordServer(t, http.StatusNoContent, "")

	d, err := NewDiscord(context.Background(), DiscordConfig{
		Token:       "bad",
		ChannelName: "測試",
		WebhookURL:  hook.URL + "/api/webhooks/1/abc",
		BaseURL:     api.URL,
	})
	if err != nil {
		t.Fatalf("NewDiscord() error = %v", err)
	}
	if err := d.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.path != "/api/webhooks/1/abc" {
		t.Errorf("expected webhook delivery, got %q", got.path)
	}
}

func TestNewDiscord_LookupRejected(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(api.Close)

	_, err := NewDiscord(context.Background(), DiscordConfig{Token: "bad", ChannelName: "測試", BaseURL: api.URL})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected lookup error with status, got %v", err)
	}
}

// --- Log Tests ---

func TestLog_Send(t *testing.T) {
	var n Notifier = Log{}
	if err := n.Send(context.Background(), "dry run"); err != nil {
		t.Errorf("Send() error = %v", err)
	}
	if n.Name() != "log" {
		t.Errorf("unexpected name %q", n.Name())
	}
}

// --- Format Tests ---

func TestFormat(t *testing.T) {
	msg := Format(Message{
		Platform: "tixcraft",
		Event:    "Spring Tour",
		Records: []ticket.Record{
			{Name: "A", Status: "Find tickets", Available: true},
		},
		URL: "https://example.test/game/1",
	})

	want := "🎟️ **TIXCRAFT tickets available!**\n" +
		"**Event: Spring Tour**\n" +
		"• A: Find tickets\n" +
		"\n🔗 **Purchase link:**\n" +
		"https://example.test/game/1"
	if msg != want {
		t.Errorf("Format() =\n%s\nwant\n%s", msg, want)
	}
}

func TestFormat_CapsRecordLines(t *testing.T) {
	var records []ticket.Record
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		records = append(records, ticket.Record{Name: name, Status: "open", Available: true})
	}

	msg := Format(Message{Platform: "kktix", Event: "e", Records: records})

	if strings.Contains(msg, "• D:") {
		t.Error("expected at most 3 record lines")
	}
	if !strings.HasSuffix(msg, "• ...+2 more available") {
		t.Errorf("expected overflow line, got %q", msg)
	}
	if strings.Contains(msg, "Purchase link") {
		t.Error("link section must be omitted without a URL")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short"); got != "short" {
		t.Errorf("unexpected truncation %q", got)
	}
	long := strings.Repeat("a", MaxMessageLength+10)
	got := Truncate(long)
	if utf8.RuneCountInString(got) != MaxMessageLength || !strings.HasSuffix(got, "…") {
		t.Errorf("expected %d characters ending in an ellipsis", MaxMessageLength)
	}
}

func TestDeliveryError_Error(t *testing.T) {
	err := &DeliveryError{Sink: "discord", StatusCode: 429, Body: "rate limited"}
	if err.Error() != "discord delivery rejected (status 429): rate limited" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
