package passwordreset

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier delivers reset links to users
type Notifier interface {
	SendResetLink(ctx context.Context, email, name, link string, expiresAt time.Time) error
}

// LogNotifier logs reset requests instead of delivering them
type LogNotifier struct{}

// SendResetLink logs the request. The link itself is only logged at debug level.
func (LogNotifier) SendResetLink(_ context.Context, email, name, link string, expiresAt time.Time) error {
	log.Info().
		Str("email", email).
		Str("name", name).
		Time("expires_at", expiresAt).
		Msg("Password reset link ready for delivery")
	log.Debug().Str("email", email).Str("link", link).Msg("Password reset link")
	return nil
}
