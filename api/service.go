package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/slack-go/slack"

	"MoodLab/internal/messages"
)

// Responder posts follow-up messages to an interaction's response_url.
type Responder interface {
	Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error
}

// SlackClient performs every outbound call to Slack.
type SlackClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewSlackClient returns a client for the Web API rooted at apiURL.
func NewSlackClient(apiURL string, httpClient *http.Client) *SlackClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return &SlackClient{apiURL: apiURL, httpClient: httpClient}
}

func (c *SlackClient) Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	if err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, c.httpClient, msg); err != nil {
		return fmt.Errorf("Respond: failed to post to response url: %w", err)
	}
	return nil
}

// SendQuestion posts the weekly mood question to a member's DM channel as a
// JSON chat.postMessage call authorized with the bot token.
func (c *SlackClient) SendQuestion(ctx context.Context, token, channel string) error {
	body, err := json.Marshal(slack.Msg{
		Channel: channel,
		Blocks:  slack.Blocks{BlockSet: messages.WeeklyQuestion()},
	})
	if err != nil {
		return fmt.Errorf("SendQuestion: failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+slackPostMessageMethod, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("SendQuestion: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SendQuestion: chat.postMessage to %s failed: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SendQuestion: chat.postMessage to %s: Slack responded with status %s", channel, resp.Status)
	}

	var slackResp slack.SlackResponse
	if err := json.NewDecoder(resp.Body).Decode(&slackResp); err != nil {
		return fmt.Errorf("SendQuestion: failed to parse chat.postMessage response: %w", err)
	}
	if !slackResp.Ok {
		if err := slackResp.Err(); err != nil {
			return fmt.Errorf("SendQuestion: chat.postMessage to %s failed: %w", channel, err)
		}
		return fmt.Errorf("SendQuestion: chat.postMessage to %s failed", channel)
	}
	return nil
}

// ExchangeCode trades an OAuth code for a bot token via oauth.v2.access.
func (c *SlackClient) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*slack.OAuthV2Response, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+slackOAuthAccessMethod, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ExchangeCode: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ExchangeCode: OAuth token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ExchangeCode: failed to read OAuth response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ExchangeCode: Slack responded with status %s", resp.Status)
	}

	var oauthResp slack.OAuthV2Response
	if err := json.Unmarshal(body, &oauthResp); err != nil {
		return nil, fmt.Errorf("ExchangeCode: failed to parse OAuth response: %w", err)
	}
	if !oauthResp.Ok {
		return nil, fmt.Errorf("ExchangeCode: Slack error: %s", oauthResp.Error)
	}
	return &oauthResp, nil
}
