package notify

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

type fakeSlackClient struct {
	channelID string
	called    bool
}

func (f *fakeSlackClient) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	f.channelID = channelID
	f.called = true
	return "ts", channelID, nil
}

func TestSlackAlerter_Alert_PostsToConfiguredChannel(t *testing.T) {
	fc := &fakeSlackClient{}
	a := &SlackAlerter{client: fc, channel: "C123"}

	if err := a.Alert(context.Background(), "hello"); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if !fc.called || fc.channelID != "C123" {
		t.Errorf("fc = %+v", fc)
	}
}

type fakeDiscordClient struct {
	channelID string
	content   string
}

func (f *fakeDiscordClient) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelID = channelID
	f.content = data.Content
	return &discordgo.Message{}, nil
}

func TestDiscordAlerter_Alert_PostsToConfiguredChannel(t *testing.T) {
	fc := &fakeDiscordClient{}
	a := &DiscordAlerter{client: fc, channel: "chan1"}

	if err := a.Alert(context.Background(), "hello"); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if fc.channelID != "chan1" || fc.content != "hello" {
		t.Errorf("fc = %+v", fc)
	}
}

func TestMonitorTimeoutMessage_FormatsWhichAndDuration(t *testing.T) {
	got := MonitorTimeoutMessage("start", 500)
	want := `monitor condition not met by "start" time of 500ms`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
