package services

import (
	"context"

	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"github.com/jmiseikis/site-api/pkg/resend"
)

// ContactServiceInterface defines the interface for contact form submissions
type ContactServiceInterface interface {
	Submit(ctx context.Context, clientID string, submission *models.ContactSubmission) (*models.ContactResponse, error)
}

// DirectoryServiceInterface defines the interface for the public directories
type DirectoryServiceInterface interface {
	ListEvents(ctx context.Context, filter models.EventFilter) (*models.EventListResponse, error)
	EventICS(ctx context.Context, slug string) (*CalendarFile, error)
	ListFunds(ctx context.Context, filter models.FundFilter) (*models.FundListResponse, error)
}

// RateLimiter counts submissions per client
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
	Ping(ctx context.Context) error
}

// ChallengeVerifier confirms a human-interaction token
type ChallengeVerifier interface {
	Verify(ctx context.Context, token string) error
}

// Mailer delivers one transactional email
type Mailer interface {
	Send(ctx context.Context, email *resend.Email) (*resend.SendResponse, error)
}

// DirectorySource supplies directory rows, typically from a cache
type DirectorySource interface {
	Events(ctx context.Context) ([]models.TechEvent, error)
	Funds(ctx context.Context) ([]models.VentureFund, error)
}
