package handlers

import (
	"github.com/gin-gonic/gin"
)

// User-facing error messages. Causes are only ever logged.
const (
	msgInvalidInput    = "Invalid input data"
	msgTooManyRequests = "Too many requests. Please try again later."
	msgCaptchaFailed   = "CAPTCHA verification failed. Please try again."
	msgUnableToProcess = "Unable to process request. Please try again later."
	msgUnableToSend    = "Unable to send message. Please try again later."
	msgDirectoryFailed = "Failed to load directory"
	msgEventNotFound   = "Event not found"
	msgInvalidQuery    = "Invalid query parameters"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) { //nolint:unparam
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}
