package services_test

import (
	"context"

	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"github.com/jmiseikis/site-api/pkg/resend"
	"github.com/stretchr/testify/mock"
)

// MockRateLimiter is a mock implementation of services.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}

func (m *MockRateLimiter) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockVerifier is a mock implementation of services.ChallengeVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockMailer is a mock implementation of services.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email *resend.Email) (*resend.SendResponse, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendResponse), args.Error(1)
}

// MockDirectorySource is a mock implementation of services.DirectorySource
type MockDirectorySource struct {
	mock.Mock
}

func (m *MockDirectorySource) Events(ctx context.Context) ([]models.TechEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TechEvent), args.Error(1)
}

func (m *MockDirectorySource) Funds(ctx context.Context) ([]models.VentureFund, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VentureFund), args.Error(1)
}
