package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	resend "github.com/resend/resend-go/v3"
)

type ResendProvider struct {
	from   string
	client *resend.Client
}

func NewResendProvider(apiKey, from string, httpClient *http.Client) *ResendProvider {
	client := resend.NewClient(apiKey)
	if httpClient != nil {
		client = resend.NewCustomClient(httpClient, apiKey)
	}
	return &ResendProvider{
		from:   from,
		client: client,
	}
}

func (r *ResendProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	if strings.TrimSpace(email.To) == "" {
		return fmt.Errorf("email recipient is required")
	}
	if email.HTML == "" && email.Text == "" {
		return fmt.Errorf("email body is empty")
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}

func (r *ResendProvider) ValidateAPIKey(ctx context.Context) error {
	if _, err := r.client.ApiKeys.ListWithContext(ctx); err != nil {
		return fmt.Errorf("invalid API key: %w", err)
	}
	return nil
}
