// AngelaMos | 2026
// sender.go

package mail

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"

	"github.com/resend/resend-go/v2"

	"github.com/nthalt/user-api/internal/config"
)

const resetSubject = "Password reset request"

type Sender interface {
	SendResetEmail(ctx context.Context, email, token string) error
}

func NewSender(
	mailCfg config.MailConfig,
	resetCfg config.ResetConfig,
	logger *slog.Logger,
) (Sender, error) {
	switch mailCfg.Provider {
	case config.MailProviderResend:
		return NewResendSender(mailCfg.APIKey, mailCfg.From, resetCfg.URL), nil
	case config.MailProviderLog, "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", mailCfg.Provider)
	}
}

type ResendSender struct {
	client   *resend.Client
	from     string
	resetURL string
}

func NewResendSender(apiKey, from, resetURL string) *ResendSender {
	return &ResendSender{
		client:   resend.NewClient(apiKey),
		from:     from,
		resetURL: resetURL,
	}
}

func (s *ResendSender) SendResetEmail(ctx context.Context, email, token string) error {
	link := ResetLink(s.resetURL, token)

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email},
		Subject: resetSubject,
		Html: fmt.Sprintf(
			`<p>A password reset was requested for your account.</p>`+
				`<p><a href="%s">Reset your password</a></p>`+
				`<p>The link is valid for one hour. If you did not request it, ignore this email.</p>`,
			html.EscapeString(link),
		),
		Text: "Reset your password: " + link,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	return nil
}

// ResetLink appends token as the "token" query parameter of base.
func ResetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// LogSender is the development sender. It records that a reset mail would
// have gone out without writing the token itself.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendResetEmail(ctx context.Context, email, _ string) error {
	s.logger.InfoContext(ctx, "password reset email suppressed",
		"provider", config.MailProviderLog,
		"to", email,
	)
	return nil
}
