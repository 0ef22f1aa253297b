package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"recruitbot/app/config"

	"github.com/samber/oops"
)

type sendEmailRequest struct {
	Action  string `json:"action"`
	Subject string `json:"Subject"`
	Body    string `json:"Body"`
	To      string `json:"To"`
}

// ScriptClient sends mail through the Apps Script web app "sendEmail" action.
type ScriptClient struct {
	endpoint string
	http     *http.Client
}

func NewScriptClient(cfg config.Mail) *ScriptClient {
	return &ScriptClient{
		endpoint: cfg.URL,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *ScriptClient) Notify(ctx context.Context, subject, body, recipient string) error {
	payload, err := json.Marshal(sendEmailRequest{
		Action:  "sendEmail",
		Subject: subject,
		Body:    body,
		To:      recipient,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return oops.In("mail").With("recipient", recipient).Wrapf(err, "send mail")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return oops.In("mail").
			With("recipient", recipient, "status", resp.StatusCode).
			Errorf("send mail failed: %s", strings.TrimSpace(string(text)))
	}

	return nil
}
