package models

import "strings"

// ContactSubmission represents a contact form submission.
// Field order is the order validation errors are reported in.
type ContactSubmission struct {
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Organization   string `json:"organization" validate:"omitempty,max=100"`
	Message        string `json:"message" validate:"required,min=10,max=2000"`
	ChallengeToken string `json:"challengeToken" validate:"required"`

	// CaptchaToken is the field name older form builds still send
	CaptchaToken string `json:"captchaToken,omitempty" validate:"-"`
}

// Normalize trims the free-text fields and folds the legacy token field in.
// Organization is kept as submitted.
func (s *ContactSubmission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Message = strings.TrimSpace(s.Message)
	if s.ChallengeToken == "" {
		s.ChallengeToken = s.CaptchaToken
	}
	s.CaptchaToken = ""
}

// ContactResponse is returned after a submission has been dispatched
type ContactResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every failed contact or directory request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
