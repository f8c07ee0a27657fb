package services

import (
	"strings"

	"github.com/jmiseikis/site-api/config"
	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/pkg/resend"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// EscapeHTML replaces the characters that can open markup or attributes
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// BuildContactEmail renders the notification for one validated submission
func BuildContactEmail(submission *models.ContactSubmission, cfg config.ContactConfig) *resend.Email {
	var body strings.Builder

	body.WriteString("<h2>New Contact Form Submission</h2>\n")
	body.WriteString("<p><strong>From:</strong> " + EscapeHTML(submission.Name) + "</p>\n")
	body.WriteString("<p><strong>Email:</strong> " + EscapeHTML(submission.Email) + "</p>\n")
	if submission.Organization != "" {
		body.WriteString("<p><strong>Organization:</strong> " + EscapeHTML(submission.Organization) + "</p>\n")
	}
	body.WriteString("<p><strong>Message:</strong></p>\n")
	// newlines become <br> only after escaping so the tag itself survives
	body.WriteString("<p>" + strings.ReplaceAll(EscapeHTML(submission.Message), "\n", "<br>") + "</p>\n")

	return &resend.Email{
		From:    cfg.From,
		To:      []string{cfg.To},
		ReplyTo: submission.Email,
		Subject: cfg.Subject,
		HTML:    body.String(),
	}
}
