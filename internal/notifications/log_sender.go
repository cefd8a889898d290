package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogSender writes emails to the log instead of delivering them. Meant for
// development: confirmation links are only visible at debug level.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(ctx context.Context, email Email) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAIL_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAIL_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	s.log.InfoContext(ctx, "mail.sent", "to", email.To, "subject", email.Subject)
	s.log.DebugContext(ctx, "mail.body", "to", email.To, "body", email.Body)
	return nil
}
