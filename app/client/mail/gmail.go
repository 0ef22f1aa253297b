package mail

import (
	"context"
	"encoding/base64"
	"mime"
	"strings"
	"time"

	"recruitbot/app/config"

	"github.com/samber/oops"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type GmailClient struct {
	service *gmail.Service
	sender  string
	timeout time.Duration
}

func NewGmailClient(ctx context.Context, cfg config.Mail) (*GmailClient, error) {
	service, err := gmail.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gmail.GmailSendScope),
	)
	if err != nil {
		return nil, oops.In("mail").Wrapf(err, "failed to create Gmail service")
	}

	return &GmailClient{
		service: service,
		sender:  cfg.Sender,
		timeout: cfg.Timeout,
	}, nil
}

func (c *GmailClient) Notify(ctx context.Context, subject, body, recipient string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(buildMessage(c.sender, recipient, subject, body))),
	}

	if _, err := c.service.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return oops.In("mail").With("recipient", recipient).Wrapf(err, "send mail")
	}

	return nil
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder

	if from != "" && from != "me" {
		b.WriteString("From: " + from + "\r\n")
	}
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return b.String()
}
