// Package notify sends one-way alert messages to Slack or Discord when a
// monitor misses its deadline or ingress repeatedly fails to parse,
// wrapping each platform client behind a small interface so tests can
// inject a mock instead of a live client.
package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

// Alerter posts a single alert message to whatever channel it was
// configured with. It never blocks the engine's run loop: callers should
// invoke it from a goroutine and log, not propagate, its error.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// slackClient abstracts the Slack API methods notify uses, for testing.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackAlerter posts alerts to a single Slack channel via a bot token.
type SlackAlerter struct {
	client  slackClient
	channel string
}

// NewSlackAlerter builds a SlackAlerter posting to channel using botToken.
func NewSlackAlerter(botToken, channel string) *SlackAlerter {
	return &SlackAlerter{client: slackapi.New(botToken), channel: channel}
}

// Alert posts message to the configured Slack channel.
func (a *SlackAlerter) Alert(ctx context.Context, message string) error {
	_, _, err := a.client.PostMessageContext(ctx, a.channel, slackapi.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}

// discordClient abstracts the discordgo.Session methods notify uses.
type discordClient interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAlerter posts alerts to a single Discord channel via a bot token.
type DiscordAlerter struct {
	client  discordClient
	channel string
}

// NewDiscordAlerter builds a DiscordAlerter posting to channelID using
// botToken. The discordgo.Session is created but not opened: posting a
// channel message does not require the Gateway connection.
func NewDiscordAlerter(botToken, channelID string) (*DiscordAlerter, error) {
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordAlerter{client: sess, channel: channelID}, nil
}

// Alert posts message to the configured Discord channel.
func (a *DiscordAlerter) Alert(ctx context.Context, message string) error {
	_, err := a.client.ChannelMessageSendComplex(a.channel, &discordgo.MessageSend{Content: message})
	if err != nil {
		return fmt.Errorf("notify: discord post: %w", err)
	}
	return nil
}

// MonitorTimeoutMessage formats the alert text for a monitor that missed
// its start or stop deadline.
func MonitorTimeoutMessage(which string, ms int) string {
	return fmt.Sprintf("monitor condition not met by %q time of %dms", which, ms)
}

// ParseFailureMessage formats the alert text for a repeated ingress parse
// failure, reported after threshold consecutive invalid messages.
func ParseFailureMessage(threshold int) string {
	return fmt.Sprintf("%d consecutive invalid ingress messages received", threshold)
}
