package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// EmailProvider defines the interface for transactional email delivery
type EmailProvider interface {
	SendActivationEmail(ctx context.Context, recipient, fullName, code string, expiresAt time.Time, customMessage string) error
	GetName() string
}

// ResendProvider delivers email through the Resend HTTP API.
type ResendProvider struct {
	apiKey    string
	fromEmail string
	fromName  string
	baseURL   string
	client    *http.Client
	logger    *logrus.Logger
}

// NewResendProvider creates a Resend-backed email provider
func NewResendProvider(apiKey, fromEmail, fromName, baseURL string, logger *logrus.Logger) *ResendProvider {
	return &ResendProvider{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// GetName returns the provider name
func (p *ResendProvider) GetName() string {
	return "resend"
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendActivationEmail sends the activation code email. The plaintext code
// appears only here and in the generation response.
func (p *ResendProvider) SendActivationEmail(ctx context.Context, recipient, fullName, code string, expiresAt time.Time, customMessage string) error {
	if p.apiKey == "" {
		return fmt.Errorf("email provider not configured")
	}

	subject, html := formatActivationEmail(fullName, code, expiresAt, customMessage)
	payload := resendRequest{
		From:    fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail),
		To:      []string{recipient},
		Subject: subject,
		HTML:    html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}

	p.logger.WithFields(logrus.Fields{
		"provider":  p.GetName(),
		"recipient": recipient,
	}).Info("Activation email sent")
	return nil
}

func formatActivationEmail(fullName, code string, expiresAt time.Time, customMessage string) (string, string) {
	subject := "Your activation code"

	extra := ""
	if customMessage != "" {
		extra = fmt.Sprintf(`<p>%s</p>`, customMessage)
	}

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #166534; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
        .code { font-size: 32px; font-weight: bold; color: #166534; letter-spacing: 8px; text-align: center; padding: 20px; background-color: white; border-radius: 8px; margin: 20px 0; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Account Activation</h1>
        </div>
        <div class="content">
            <p>Hello %s,</p>
            <p>An account has been prepared for you. Use the following code in the mobile app to activate it:</p>
            <div class="code">%s</div>
            <p>This code expires on %s.</p>
            %s
            <p>If you were not expecting this email, please ignore it.</p>
        </div>
        <div class="footer">
            <p>This is an automated message; replies are not monitored.</p>
        </div>
    </div>
</body>
</html>
`, fullName, code, expiresAt.Format("Jan 2, 2006 at 15:04 MST"), extra)

	return subject, html
}

// NoopProvider is used when no email credentials are configured. Sends are
// logged and reported as skipped.
type NoopProvider struct {
	logger *logrus.Logger
}

// NewNoopProvider creates a provider that logs instead of sending
func NewNoopProvider(logger *logrus.Logger) *NoopProvider {
	return &NoopProvider{logger: logger}
}

// GetName returns the provider name
func (p *NoopProvider) GetName() string {
	return "noop"
}

// SendActivationEmail logs the send without delivering anything.
func (p *NoopProvider) SendActivationEmail(ctx context.Context, recipient, fullName, code string, expiresAt time.Time, customMessage string) error {
	p.logger.WithField("recipient", recipient).Warn("Email delivery disabled; activation email not sent")
	return fmt.Errorf("email delivery disabled")
}
