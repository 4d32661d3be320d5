package mailer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogMailer writes messages to the log instead of dispatching them. Used in
// development when no mail API key is configured.
type LogMailer struct{}

// Send logs the message and reports success.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail (log only)")
	return nil
}
