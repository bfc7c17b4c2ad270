package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const resendEmailsURL = "https://api.resend.com/emails"

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

// Email is one outbound message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// EmailSender delivers an Email.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// Mailer sends email through the Resend API.
type Mailer struct {
	apiKey    string
	fromEmail string
	endpoint  string
	client    *http.Client
	logger    zerolog.Logger
}

type MailerOption func(*Mailer)

// WithEndpoint points the mailer at another Resend-compatible endpoint.
func WithEndpoint(endpoint string) MailerOption {
	return func(m *Mailer) {
		m.endpoint = endpoint
	}
}

func WithHTTPClient(client *http.Client) MailerOption {
	return func(m *Mailer) {
		m.client = client
	}
}

// NewMailer needs RESEND_API_KEY and RESEND_FROM_EMAIL
// (e.g. "Your Name <[email protected]>").
func NewMailer(apiKey, fromEmail string, opts ...MailerOption) *Mailer {
	m := &Mailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		endpoint:  resendEmailsURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    log.With().Str("service", "mailer").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send sends an email using the Resend API
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if m.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY is not configured")
	}
	if m.fromEmail == "" {
		return fmt.Errorf("RESEND_FROM_EMAIL is not configured")
	}

	// Build the Resend API payload
	payload := ResendEmailRequest{
		From:    m.fromEmail,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		ReplyTo: email.ReplyTo,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Resend API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, errorResp.Message)
		}
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		m.logger.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}

	return nil
}
