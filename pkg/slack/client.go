// Package slack provides the optional Slack finalize-notifier: a thin
// wrapper around the Slack SDK the Finalizer calls, fire-and-forget, when
// a meeting closes. Disabled by default; any failure is logged and
// ignored, same discipline as the rest of the Finalizer's optional steps.
package slack

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"
)

// Client is a thin wrapper around the slack-go SDK, scoped to the one
// chat.postMessage call this notifier needs.
type Client struct {
	api     *goslack.Client
	channel string
}

// NewClient creates a Client bound to a bot token and destination channel.
func NewClient(token, channel string) *Client {
	return &Client{
		api:     goslack.New(token),
		channel: channel,
	}
}

// NewClientWithAPIURL creates a Client that targets a custom API URL, for
// tests against a mock server.
func NewClientWithAPIURL(token, channel, apiURL string) *Client {
	return &Client{
		api:     goslack.New(token, goslack.OptionAPIURL(apiURL)),
		channel: channel,
	}
}

// PostMessage sends a plain-text message to the configured channel.
func (c *Client) PostMessage(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, _, err := c.api.PostMessageContext(ctx, c.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return nil
}
