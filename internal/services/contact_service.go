package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmiseikis/site-api/config"
	"github.com/jmiseikis/site-api/internal/models"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/metrics"
	"github.com/jmiseikis/site-api/pkg/resend"
	"github.com/jmiseikis/site-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RateLimitError is returned when a client has used up its window
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("submission limit reached, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return apperrors.ErrRateLimited
}

// RetryAfterSeconds rounds up to whole seconds, never below one
func (e *RateLimitError) RetryAfterSeconds() int {
	seconds := int(math.Ceil(e.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// ContactService runs a validated submission through rate limiting,
// challenge verification and email dispatch, in that order.
type ContactService struct {
	limiter  RateLimiter
	verifier ChallengeVerifier
	mailer   Mailer
	contact  config.ContactConfig
}

// NewContactService creates a new contact service instance
func NewContactService(limiter RateLimiter, verifier ChallengeVerifier, mailer Mailer, contact config.ContactConfig) *ContactService {
	return &ContactService{
		limiter:  limiter,
		verifier: verifier,
		mailer:   mailer,
		contact:  contact,
	}
}

// Submit handles one submission. The first failing stage ends the pipeline
// and its error is returned wrapped around the matching pkg/errors sentinel.
func (s *ContactService) Submit(ctx context.Context, clientID string, submission *models.ContactSubmission) (*models.ContactResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.submit", attribute.String("client.id", clientID))
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.checkRate(ctx, clientID); err != nil {
		return nil, err
	}

	if err = s.verify(ctx, clientID, submission.ChallengeToken); err != nil {
		return nil, err
	}

	if err = s.dispatch(ctx, submission); err != nil {
		return nil, err
	}

	metrics.ContactFormSubmissions.WithLabelValues("success").Inc()
	logger.Info("Contact form submission delivered", zap.String("client_id", clientID))
	return &models.ContactResponse{Success: true}, nil
}

func (s *ContactService) checkRate(ctx context.Context, clientID string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "contact.rate_check")
	defer func() { tracing.EndSpan(span, err) }()

	decision, err := s.limiter.Allow(ctx, clientID)
	if err != nil {
		metrics.RateLimitDecisions.WithLabelValues("error").Inc()
		metrics.ContactFormSubmissions.WithLabelValues("error").Inc()
		logger.Error("Rate limit check failed", zap.String("client_id", clientID), zap.Error(err))
		return fmt.Errorf("rate limit check failed: %w: %w", apperrors.ErrInternal, err)
	}

	if !decision.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("rejected").Inc()
		metrics.ContactFormSubmissions.WithLabelValues("rate_limited").Inc()
		logger.Warn("Rate limit exceeded",
			zap.String("client_id", clientID),
			zap.Int("count", decision.Count),
			zap.Time("reset_at", decision.ResetAt))
		return &RateLimitError{RetryAfter: decision.RetryAfter}
	}

	metrics.RateLimitDecisions.WithLabelValues("admitted").Inc()
	return nil
}

func (s *ContactService) verify(ctx context.Context, clientID, token string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "contact.verify_challenge")
	defer func() { tracing.EndSpan(span, err) }()

	if verr := s.verifier.Verify(ctx, token); verr != nil {
		metrics.ContactFormSubmissions.WithLabelValues("captcha_failed").Inc()
		if apperrors.Is(verr, apperrors.ErrNotConfigured) {
			logger.Error("Challenge verification is not configured", zap.Error(verr))
		} else {
			logger.Warn("Challenge verification failed", zap.String("client_id", clientID), zap.Error(verr))
		}
		return fmt.Errorf("%w: %w", apperrors.ErrVerificationFailed, verr)
	}
	return nil
}

func (s *ContactService) dispatch(ctx context.Context, submission *models.ContactSubmission) (err error) {
	ctx, span := tracing.StartSpan(ctx, "contact.dispatch")
	defer func() { tracing.EndSpan(span, err) }()

	if strings.TrimSpace(s.contact.To) == "" {
		metrics.ContactFormSubmissions.WithLabelValues("not_configured").Inc()
		logger.Error("Contact recipient is not configured")
		return apperrors.NotConfiguredError("CONTACT_TO")
	}

	resp, sendErr := s.mailer.Send(ctx, BuildContactEmail(submission, s.contact))
	if sendErr != nil {
		if apperrors.Is(sendErr, apperrors.ErrNotConfigured) {
			metrics.ContactFormSubmissions.WithLabelValues("not_configured").Inc()
			logger.Error("Email delivery is not configured", zap.Error(sendErr))
			return sendErr
		}

		fields := []zap.Field{zap.Error(sendErr)}
		var apiErr *resend.APIError
		if apperrors.As(sendErr, &apiErr) {
			fields = append(fields, zap.Int("status", apiErr.StatusCode), zap.String("response", apiErr.Body))
		}
		metrics.ContactFormSubmissions.WithLabelValues("send_failed").Inc()
		logger.Error("Failed to send contact email", fields...)
		return apperrors.UpstreamError("resend", sendErr)
	}

	if resp != nil {
		logger.Debug("Contact email accepted", zap.String("email_id", resp.ID))
	}
	return nil
}
