package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rzn0/forgetn-t/internal/dto"
	"github.com/rzn0/forgetn-t/internal/render"
)

const defaultAPIRoot = "https://discord.com/api/v10"

// rate-limit waits beyond this are not worth blocking an interaction for
const maxRetryAfter = 10 * time.Second

// DiscordClient is the REST implementation of MessageSink and FollowupSender.
type DiscordClient struct {
	token   string
	apiRoot string
	client  *http.Client
}

// NewDiscordClient creates a client authenticated with a bot token. An empty
// apiRoot selects the public API; tests point it at a local server.
func NewDiscordClient(token, apiRoot string) *DiscordClient {
	if strings.TrimSpace(apiRoot) == "" {
		apiRoot = defaultAPIRoot
	}
	return &DiscordClient{
		token:   token,
		apiRoot: strings.TrimRight(apiRoot, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// PostMessage creates a message in a channel and returns its ref.
func (c *DiscordClient) PostMessage(ctx context.Context, channelID string, unit render.DisplayUnit) (MessageRef, error) {
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	body, err := c.call(ctx, http.MethodPost, path, dto.NewMessagePayload(unit))
	if err != nil {
		return MessageRef{}, err
	}

	messageID := gjson.GetBytes(body, "id").String()
	if messageID == "" {
		return MessageRef{}, &TransportError{Op: "postMessage", Err: fmt.Errorf("response carried no message id")}
	}
	return MessageRef{ChannelID: channelID, MessageID: messageID}, nil
}

// EditMessage replaces the content of an existing message in place.
func (c *DiscordClient) EditMessage(ctx context.Context, ref MessageRef, unit render.DisplayUnit) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", ref.ChannelID, ref.MessageID)
	_, err := c.call(ctx, http.MethodPatch, path, dto.NewMessagePayload(unit))
	return err
}

// DeleteMessage removes a message.
func (c *DiscordClient) DeleteMessage(ctx context.Context, ref MessageRef) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", ref.ChannelID, ref.MessageID)
	_, err := c.call(ctx, http.MethodDelete, path, nil)
	return err
}

// PostFollowup sends the followup message of a deferred interaction. Followups
// are addressed by interaction token, not channel, and are always ephemeral.
func (c *DiscordClient) PostFollowup(ctx context.Context, applicationID, token, content string) error {
	path := fmt.Sprintf("/webhooks/%s/%s", applicationID, token)
	payload := map[string]interface{}{
		"content": content,
		"flags":   ephemeralFlag,
	}
	_, err := c.call(ctx, http.MethodPost, path, payload)
	return err
}

const ephemeralFlag = 64

func (c *DiscordClient) call(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	// one extra attempt after honoring a rate-limit wait
	for attempt := 0; ; attempt++ {
		var reqBody io.Reader
		if encoded != nil {
			reqBody = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.apiRoot+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, &TransportError{Op: method + " " + path, Err: err}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &TransportError{Op: method + " " + path, Status: resp.StatusCode, Err: readErr}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrMessageNotFound
		case resp.StatusCode == http.StatusTooManyRequests && attempt == 0:
			wait := time.Duration(gjson.GetBytes(body, "retry_after").Float() * float64(time.Second))
			if wait <= 0 || wait > maxRetryAfter {
				return nil, &TransportError{Op: method + " " + path, Status: resp.StatusCode, Err: fmt.Errorf("rate limited")}
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		default:
			message := gjson.GetBytes(body, "message").String()
			if message == "" {
				message = string(body)
			}
			return nil, &TransportError{Op: method + " " + path, Status: resp.StatusCode, Err: fmt.Errorf("%s", message)}
		}
	}
}
