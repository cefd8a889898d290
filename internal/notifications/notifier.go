package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Email is one outgoing message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LinkBuilder renders the links embedded in account emails.
type LinkBuilder struct {
	APIBaseURL  string // serves GET /auth/confirm-email
	FrontendURL string // serves /reset-password
}

func (b LinkBuilder) ConfirmationLink(email, token string) string {
	return withQuery(strings.TrimRight(b.APIBaseURL, "/")+"/auth/confirm-email", email, token)
}

func (b LinkBuilder) ResetLink(email, token string) string {
	return withQuery(strings.TrimRight(b.FrontendURL, "/")+"/reset-password", email, token)
}

func withQuery(base, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return base + "?" + q.Encode()
}

type Recorder interface {
	MailSent(kind, result string)
}

// AccountMailer turns confirmation and reset requests into emails.
type AccountMailer struct {
	links   LinkBuilder
	sender  Sender
	metrics Recorder
}

func NewAccountMailer(links LinkBuilder, sender Sender, metrics Recorder) *AccountMailer {
	return &AccountMailer{links: links, sender: sender, metrics: metrics}
}

func (m *AccountMailer) SendConfirmation(ctx context.Context, email, token string) error {
	link := m.links.ConfirmationLink(email, token)

	return m.send(ctx, "confirmation", Email{
		To:      email,
		Subject: "Confirm your SpeakUp account",
		Body: fmt.Sprintf("Welcome to SpeakUp!\n\n"+
			"Please confirm your email address by opening the link below:\n\n%s\n\n"+
			"The link expires in 30 minutes. If you did not create an account, ignore this email.\n", link),
	})
}

func (m *AccountMailer) SendReset(ctx context.Context, email, token string) error {
	link := m.links.ResetLink(email, token)

	return m.send(ctx, "reset", Email{
		To:      email,
		Subject: "Reset your SpeakUp password",
		Body: fmt.Sprintf("We received a request to reset your password.\n\n"+
			"Open the link below to choose a new one:\n\n%s\n\n"+
			"The link expires in 30 minutes. If you did not ask for a reset, ignore this email.\n", link),
	})
}

func (m *AccountMailer) send(ctx context.Context, kind string, email Email) error {
	err := m.sender.Send(ctx, email)

	if m.metrics != nil {
		result := "sent"
		switch {
		case errors.Is(err, ErrCircuitOpen):
			result = "rejected"
		case err != nil:
			result = "failed"
		}
		m.metrics.MailSent(kind, result)
	}

	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	return nil
}
