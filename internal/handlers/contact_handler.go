package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"github.com/jmiseikis/site-api/internal/services"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
)

const contactAllowHeaders = "authorization, x-client-info, apikey, content-type"

type ContactHandler struct {
	service services.ContactServiceInterface
}

func NewContactHandler(service services.ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// Preflight answers OPTIONS for the contact endpoint, with or without an Origin header
func (h *ContactHandler) Preflight(c *gin.Context) {
	setContactCORS(c)
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Status(http.StatusOK)
}

// Submit handles POST /api/v1/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	setContactCORS(c)

	var submission models.ContactSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			respondErrorWithDetails(c, http.StatusBadRequest, msgInvalidInput,
				typeErr.Field+" must be a string", apperrors.InvalidInputError(err.Error()))
			return
		}
		respondError(c, http.StatusInternalServerError, msgUnableToProcess,
			fmt.Errorf("%w: %w", apperrors.ErrMalformedBody, err))
		return
	}

	submission.Normalize()
	if err := ValidateContactSubmission(&submission); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, msgInvalidInput, err.Error(), err)
		return
	}

	clientID := ratelimit.ClientIdentifier(c.Request.Header)
	resp, err := h.service.Submit(c.Request.Context(), clientID, &submission)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ContactHandler) respondSubmitError(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrRateLimited):
		var rlErr *services.RateLimitError
		if apperrors.As(err, &rlErr) {
			c.Header("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds()))
		}
		respondError(c, http.StatusTooManyRequests, msgTooManyRequests, err)
	case apperrors.Is(err, apperrors.ErrVerificationFailed):
		respondError(c, http.StatusBadRequest, msgCaptchaFailed, err)
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		respondErrorWithDetails(c, http.StatusBadRequest, msgInvalidInput, err.Error(), err)
	case apperrors.Is(err, apperrors.ErrUpstream):
		respondError(c, http.StatusInternalServerError, msgUnableToSend, err)
	default:
		respondError(c, http.StatusInternalServerError, msgUnableToProcess, err)
	}
}

// setContactCORS applies the contact endpoint's wildcard CORS headers unless
// the CORS middleware already answered for this origin.
func setContactCORS(c *gin.Context) {
	if c.Writer.Header().Get("Access-Control-Allow-Origin") == "" {
		c.Header("Access-Control-Allow-Origin", "*")
	}
	c.Header("Access-Control-Allow-Headers", contactAllowHeaders)
}
