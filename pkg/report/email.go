package report

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/mrz1836/postmark"
)

// EmailConfig holds configuration for the Postmark-backed reporter.
type EmailConfig struct {
	ServerToken   string `env:"POSTMARK_SERVER_TOKEN,required"`
	AccountToken  string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail   string `env:"REPORT_SENDER_EMAIL,required"`
	OperatorEmail string `env:"REPORT_OPERATOR_EMAIL,required"`
}

// EmailReporter delivers error-severity reports to the operator mailbox via
// Postmark. Delivery failures are logged and dropped; a broken alert channel
// must never take a request down with it.
type EmailReporter struct {
	client *postmark.Client
	config EmailConfig
	log    *slog.Logger
}

// NewEmailReporter creates a Postmark-backed reporter.
func NewEmailReporter(cfg EmailConfig, log *slog.Logger) (*EmailReporter, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if cfg.OperatorEmail == "" {
		return nil, fmt.Errorf("%w: OperatorEmail is required", ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	return &EmailReporter{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
		log:    log,
	}, nil
}

func (r *EmailReporter) Report(ctx context.Context, rep Report) {
	// Warnings stay in the logs; only error severity pages the operator.
	if rep.Severity != SeverityError {
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString(rep.Message))
	fmt.Fprintf(&body, "<p>report: %s</p>", rep.ID)
	for k, v := range rep.Fields {
		fmt.Fprintf(&body, "<p>%s: %s</p>", html.EscapeString(k), html.EscapeString(fmt.Sprint(v)))
	}

	resp, err := r.client.SendEmail(ctx, postmark.Email{
		From:     r.config.SenderEmail,
		To:       r.config.OperatorEmail,
		Subject:  fmt.Sprintf("[%s] %s", rep.Kind, rep.Message),
		Tag:      "operator-report",
		HTMLBody: body.String(),
	})
	if err != nil {
		r.log.ErrorContext(ctx, "failed to deliver operator report", "report_id", rep.ID, "error", err)
		return
	}
	if resp.ErrorCode > 0 {
		r.log.ErrorContext(ctx, "postmark rejected operator report",
			"report_id", rep.ID, "code", resp.ErrorCode, "message", resp.Message)
	}
}
