package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackChannel 通过 incoming webhook 投递告警。
type SlackChannel struct {
	name       string
	webhookURL string
	client     *http.Client
}

func NewSlackChannel(name, webhookURL string) *SlackChannel {
	return &SlackChannel{
		name:       name,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (c *SlackChannel) Send(a Alert) error {
	payload := slackPayload{
		Text: fmt.Sprintf("*[%s]* %s\n%s\n_%s_",
			a.Severity, a.Title, a.Message,
			a.Timestamp.Format(time.RFC3339)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.client.Post(c.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook: status %d", resp.StatusCode)
	}
	return nil
}

func (c *SlackChannel) Name() string { return c.name }
