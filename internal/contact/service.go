package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	// ErrRateLimited is returned once a client exceeds the submission limit.
	ErrRateLimited = errors.New("contact: rate limited")
	// ErrDelivery wraps mail provider failures.
	ErrDelivery = errors.New("contact: email send failed")
	// ErrNotConfigured is returned when no mailer or recipient is set up.
	ErrNotConfigured = errors.New("contact: mailer not configured")
)

// RateLimitError carries the time left in the client's window. It matches
// ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Receipt acknowledges an accepted submission.
type Receipt struct {
	ID         string
	Lang       string
	ReceivedAt time.Time
}

// Service checks, throttles and delivers contact submissions.
type Service struct {
	limiter    *Limiter
	mailer     Mailer
	recipients Recipients
	notifier   Notifier
	logger     *zap.Logger
	clock      func() time.Time
	newID      func() string
	counter    metric.Int64Counter
}

// Option customises a Service.
type Option func(*Service)

// WithMailer sets the mailer and its recipients.
func WithMailer(m Mailer, r Recipients) Option {
	return func(s *Service) {
		s.mailer = m
		s.recipients = r
	}
}

// WithNotifier adds a fan-out notifier. Notification failures are logged only.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides receipt ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService builds a service throttled by limiter.
func NewService(limiter *Limiter, opts ...Option) *Service {
	s := &Service{
		limiter: limiter,
		logger:  zap.NewNop(),
		clock:   time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.limiter == nil {
		s.limiter = NewLimiter(nil, DefaultRateMax, DefaultRateWindow, s.clock)
	}
	counter, err := otel.Meter("finitefield.org/shopper-web/internal/contact").Int64Counter(
		"contact.submissions",
		metric.WithDescription("Contact form submissions by outcome"),
	)
	if err == nil {
		s.counter = counter
	}
	return s
}

// Submit throttles by client IP, validates and emails the submission. The rate
// limit is checked first so that rejected posts still count.
func (s *Service) Submit(ctx context.Context, sub Submission) (receipt Receipt, err error) {
	sub = sub.Normalize()
	defer func() { s.record(ctx, sub, err) }()

	allowed, window, err := s.limiter.Allow(ctx, sub.IP)
	if err != nil {
		// Store failures fail open.
		s.logger.Warn("contact: rate limit store failed", zap.Error(err))
		err = nil
	} else if !allowed {
		s.logger.Info("contact: rate limited",
			zap.String("ip", clientKey(sub.IP)),
			zap.Int("count", window.Count),
			zap.Time("reset_at", window.ResetAt),
		)
		retry := window.ResetAt.Sub(s.clock())
		if retry < 0 {
			retry = 0
		}
		return Receipt{}, &RateLimitError{RetryAfter: retry}
	}

	if err := sub.Validate(); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) && vErr.Bot() {
			s.logger.Info("contact: honeypot triggered", zap.String("ip", clientKey(sub.IP)))
		}
		return Receipt{}, err
	}

	if s.mailer == nil || s.recipients.From == "" || len(s.recipients.To) == 0 {
		return Receipt{}, ErrNotConfigured
	}

	email, err := ComposeEmail(sub, s.recipients)
	if err != nil {
		return Receipt{}, fmt.Errorf("contact: compose email: %w", err)
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		s.logger.Error("contact: email delivery failed", zap.Error(err))
		return Receipt{}, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	receipt = Receipt{ID: s.newID(), Lang: string(sub.Lang), ReceivedAt: s.clock()}
	if s.notifier != nil {
		if nErr := s.notifier.Notify(ctx, receipt, sub); nErr != nil {
			s.logger.Warn("contact: notification failed", zap.String("id", receipt.ID), zap.Error(nErr))
		}
	}
	s.logger.Info("contact: submission accepted", zap.String("id", receipt.ID), zap.String("lang", receipt.Lang))
	return receipt, nil
}

func (s *Service) record(ctx context.Context, sub Submission, err error) {
	if s.counter == nil {
		return
	}
	s.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", Outcome(err)),
		attribute.String("lang", string(sub.Lang)),
	))
}

// Outcome classifies a Submit error for metrics and responses.
func Outcome(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrDelivery):
		return "email_send_failed"
	default:
		return "internal_error"
	}
}
