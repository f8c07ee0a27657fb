package services_test

import (
	"github.com/jmiseikis/site-api/config"
	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

func testContactConfig() config.ContactConfig {
	return config.ContactConfig{
		From:    "Contact Form <onboarding@resend.dev>",
		To:      "owner@example.com",
		Subject: "PERSONAL WEBSITE CONTACT",
	}
}

func adaSubmission() *models.ContactSubmission {
	return &models.ContactSubmission{
		Name:           "Ada",
		Email:          "ada@example.com",
		Message:        "Interested in advisory services for our startup.",
		ChallengeToken: "valid-token",
	}
}
