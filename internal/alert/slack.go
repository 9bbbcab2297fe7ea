package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// SlackChannel delivers a Payload as a Slack incoming-webhook message,
// surfacing the invocation's account/verb/stage as dedicated fields
// instead of folding them into free-text Message — an on-call reading
// the channel on a phone sees which account and which grid stage
// failed without opening the log.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

// NewSlackChannel builds a SlackChannel posting to webhookURL.
func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Send(ctx context.Context, p Payload) error {
	if s.webhookURL == "" {
		return nil
	}

	color := "#36a64f"
	switch p.Level {
	case Warning:
		color = "#ffcc00"
	case Error:
		color = "#ff0000"
	case Critical:
		color = "#8b0000"
	}

	fields := []map[string]interface{}{}
	if p.Account != "" {
		fields = append(fields, map[string]interface{}{"title": "account", "value": p.Account, "short": true})
	}
	if p.Verb != "" {
		fields = append(fields, map[string]interface{}{"title": "verb", "value": p.Verb, "short": true})
	}
	if p.Stage != "" {
		fields = append(fields, map[string]interface{}{"title": "stage", "value": fmt.Sprintf("`%s`", p.Stage), "short": false})
	}

	// p.Fields is a plain map; ranging over it directly would reorder
	// the message's fields on every delivery. Sort the keys so the
	// same Payload always renders the same attachment.
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, map[string]interface{}{"title": k, "value": p.Fields[k], "short": true})
	}

	pretext := fmt.Sprintf("[%s] %s", p.Level, p.Title)
	if p.Account != "" {
		pretext = fmt.Sprintf("[%s] *%s* — %s", p.Level, p.Account, p.Title)
	}

	body := map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color":   color,
				"pretext": pretext,
				"text":    p.Message,
				"fields":  fields,
				"ts":      p.Timestamp.Unix(),
				"footer":  "gridtrader",
			},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
