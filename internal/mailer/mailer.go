package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"
)

// Message is one transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer dispatches transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// APIMailer sends mail through an HTTP mail API (Resend-compatible payload).
type APIMailer struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

// NewAPIMailer builds the HTTP mailer.
func NewAPIMailer(baseURL, apiKey, from string) (*APIMailer, error) {
	if apiKey == "" {
		return nil, errors.New("mail API key not set")
	}
	return &APIMailer{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts the message to the mail API.
func (m *APIMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("mail dispatch failed: %s", buf.String())
	}
	return nil
}

// VerificationEmail builds the signup confirmation message.
func VerificationEmail(to, verifyURL string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email",
		HTML: `<p>Welcome!</p>
<p>Verify your email to complete your barangay account registration. The link expires in 24 hours.</p>
<p><a href="` + html.EscapeString(verifyURL) + `">Verify Email</a></p>`,
	}
}

// OTPEmail builds the password-reset code message.
func OTPEmail(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Password reset code",
		HTML: `<p>Enter this code to reset your password. It expires in 5 minutes.</p>
<p><b>` + html.EscapeString(code) + `</b></p>
<p>If you did not request a reset, you can ignore this email.</p>`,
	}
}

// PasswordChangedEmail confirms a completed reset.
func PasswordChangedEmail(to string) Message {
	return Message{
		To:      to,
		Subject: "Your password was changed",
		HTML:    `<p>Your account password has been updated. If this was not you, contact your barangay office immediately.</p>`,
	}
}

// AccountVerifiedEmail notifies a resident their account was approved.
func AccountVerifiedEmail(to, barangayName string) Message {
	return Message{
		To:      to,
		Subject: "Account verified",
		HTML:    `<p>Your account for Barangay ` + html.EscapeString(barangayName) + ` has been verified. You can now request documents online.</p>`,
	}
}

// DeactivationEmail carries the mandatory reason to the resident.
func DeactivationEmail(to, reason string) Message {
	return Message{
		To:      to,
		Subject: "Account deactivated",
		HTML: `<p>Your barangay account has been deactivated.</p>
<p>Reason: ` + html.EscapeString(reason) + `</p>
<p>Visit your barangay office if you believe this is a mistake.</p>`,
	}
}

// ActivationEmail notifies that a previously deactivated account is back.
func ActivationEmail(to string) Message {
	return Message{
		To:      to,
		Subject: "Account reactivated",
		HTML:    `<p>Your barangay account has been reactivated. You can log in again.</p>`,
	}
}
