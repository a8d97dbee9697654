// Package passwordreset issues and validates single-use password reset tokens
// stored in Redis.
package passwordreset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"confidentpicks/automation/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Validation failures, in the order they are checked
var (
	ErrNoRequest    = errors.New("no reset request found for this email")
	ErrInvalidToken = errors.New("invalid reset token")
	ErrTokenUsed    = errors.New("this reset link has already been used")
	ErrTokenExpired = errors.New("this reset link has expired, please request a new one")
	ErrInvalidEmail = errors.New("email is required")
)

const (
	// DefaultTTL is how long a reset link stays valid
	DefaultTTL = time.Hour
	// DefaultLinkBase is the page that consumes reset links
	DefaultLinkBase = "https://confident-picks.com/reset-password.html"

	tokenBytes = 32
	keyPrefix  = "password_reset:"

	// Expired and used entries are kept this long so validation can tell
	// them apart from missing requests
	retention = 24 * time.Hour
)

// markUsedScript flips the used flag once. It returns 0 when there is no
// entry, 1 when it was marked and 2 when it had already been used.
var markUsedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("HGET", KEYS[1], "used") == "1" then
	return 2
end
redis.call("HSET", KEYS[1], "used", "1", "used_at", ARGV[1])
return 1
`)

// Request is an issued reset link
type Request struct {
	Email     string
	Token     string
	Link      string
	ExpiresAt time.Time
}

// Service manages reset tokens
type Service struct {
	client   *redis.Client
	notifier Notifier
	ttl      time.Duration
	linkBase string
	now      func() time.Time
}

// NewService creates a reset token service. Zero values select the defaults.
func NewService(client *redis.Client, notifier Notifier, ttl time.Duration, linkBase string) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Service{
		client:   client,
		notifier: notifier,
		ttl:      ttl,
		linkBase: linkBase,
		now:      time.Now,
	}
}

// WithClock overrides the service's time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Request issues a new token for email, replacing any earlier one, and
// hands the reset link to the notifier
func (s *Service) Request(ctx context.Context, email, name string) (*Request, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.ttl)
	key := keyPrefix + email

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"token_hash": hashToken(token),
		"expires":    strconv.FormatInt(expires.UnixMilli(), 10),
		"created":    strconv.FormatInt(now.UnixMilli(), 10),
		"used":       "0",
	})
	pipe.Expire(ctx, key, s.ttl+retention)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordResetToken("request", "error")
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	req := &Request{
		Email:     email,
		Token:     token,
		Link:      s.resetLink(token, email),
		ExpiresAt: expires,
	}

	if err := s.notifier.SendResetLink(ctx, email, name, req.Link, expires); err != nil {
		metrics.RecordResetToken("request", "notify_error")
		return nil, fmt.Errorf("failed to send reset link: %w", err)
	}

	metrics.RecordResetToken("request", "issued")
	log.Info().
		Str("email", email).
		Time("expires_at", expires).
		Msg("Password reset requested")

	return req, nil
}

// Validate checks a token without consuming it
func (s *Service) Validate(ctx context.Context, email, token string) error {
	err := s.validate(ctx, normalizeEmail(email), token)
	metrics.RecordResetToken("validate", outcome(err))
	return err
}

func (s *Service) validate(ctx context.Context, email, token string) error {
	if email == "" {
		return ErrInvalidEmail
	}

	entry, err := s.client.HGetAll(ctx, keyPrefix+email).Result()
	if err != nil {
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if len(entry) == 0 {
		return ErrNoRequest
	}

	if subtle.ConstantTimeCompare([]byte(entry["token_hash"]), []byte(hashToken(token))) != 1 {
		return ErrInvalidToken
	}
	if entry["used"] == "1" {
		return ErrTokenUsed
	}

	expires, err := strconv.ParseInt(entry["expires"], 10, 64)
	if err != nil || s.now().UnixMilli() > expires {
		return ErrTokenExpired
	}

	return nil
}

// MarkUsed consumes the token issued for email
func (s *Service) MarkUsed(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	res, err := markUsedScript.Run(ctx, s.client, []string{keyPrefix + email}, s.now().UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}

	switch res {
	case 0:
		return ErrNoRequest
	case 2:
		return ErrTokenUsed
	default:
		return nil
	}
}

// Complete validates a token and consumes it. A token can complete once.
func (s *Service) Complete(ctx context.Context, email, token string) error {
	email = normalizeEmail(email)
	if err := s.validate(ctx, email, token); err != nil {
		metrics.RecordResetToken("complete", outcome(err))
		return err
	}

	err := s.MarkUsed(ctx, email)
	metrics.RecordResetToken("complete", outcome(err))
	if err != nil {
		return err
	}

	log.Info().Str("email", email).Msg("Password reset completed")
	return nil
}

func (s *Service) resetLink(token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)

	sep := "?"
	if strings.Contains(s.linkBase, "?") {
		sep = "&"
	}
	return s.linkBase + sep + q.Encode()
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoRequest):
		return "no_request"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	case errors.Is(err, ErrTokenUsed):
		return "used"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "error"
	}
}
