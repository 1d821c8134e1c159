package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"releaseguard/internal/platform/config"
)

type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type Message struct {
	From    Address
	To      string
	Subject string
	HTML    string
}

// Notifier delivers a single transactional email.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NewNotifier picks the delivery provider from configuration.
func NewNotifier(cfg config.EmailConfig) (Notifier, error) {
	switch cfg.Provider {
	case "brevo":
		if cfg.Brevo.APIKey == "" {
			return nil, fmt.Errorf("email: brevo provider requires an api key")
		}
		return NewBrevoNotifier(cfg.Brevo.APIURL, cfg.Brevo.APIKey, cfg.Timeout), nil
	case "log", "":
		return LogNotifier{}, nil
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.Provider)
	}
}

// LogNotifier writes messages to the log instead of sending them. Bodies may
// hold one-time secrets, so it is for local development only.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, msg Message) error {
	log.Ctx(ctx).Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.HTML).
		Msg("email not sent: log provider")
	return nil
}
