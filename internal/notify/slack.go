package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hamed0406/healthalert/internal/domain"
)

type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string `json:"color"`
	Text   string `json:"text"`
	Footer string `json:"footer,omitempty"`
	TS     int64  `json:"ts,omitempty"`
}

// levelColors maps event levels to attachment colors; other levels are grey.
var levelColors = map[string]string{
	"info":     "good",
	"warning":  "warning",
	"critical": "danger",
}

func slackColor(level string) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return "#9e9e9e"
}

func (s *Slack) Notify(ctx context.Context, eventName string, ev domain.Event) error {
	if s == nil || s.Webhook == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(slackPayload{
		Text: "*" + Title(eventName, ev) + "*",
		Attachments: []slackAttachment{{
			Color:  slackColor(ev.Level),
			Text:   Text(ev),
			Footer: ev.ID,
			TS:     ev.Raised.Unix(),
		}},
	})
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("slack non-2xx: %d", resp.StatusCode)
	}
	return nil
}
