package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmiseikis/site-api/config"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"github.com/jmiseikis/site-api/internal/services"
	"github.com/jmiseikis/site-api/pkg/httpclient"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/resend"
	"github.com/jmiseikis/site-api/pkg/turnstile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := logger.Initialize(logger.Config{Level: "error", Environment: "development"}); err != nil {
		panic(err)
	}
}

// fakeProviders stands in for the challenge and email providers
type fakeProviders struct {
	mu             sync.Mutex
	verifyCalls    int
	verifySuccess  bool
	emails         []resend.Email
	authorizations []string
	emailStatus    int

	turnstile *httptest.Server
	resend    *httptest.Server
}

func newFakeProviders(t *testing.T) *fakeProviders {
	t.Helper()
	f := &fakeProviders{verifySuccess: true, emailStatus: http.StatusOK}

	f.turnstile = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.verifyCalls++
		success := f.verifySuccess
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if success {
			_, _ = io.WriteString(w, `{"success":true,"hostname":"example.com"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":false,"error-codes":["invalid-input-response"]}`)
	}))

	f.resend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var email resend.Email
		_ = json.NewDecoder(r.Body).Decode(&email)

		f.mu.Lock()
		f.emails = append(f.emails, email)
		f.authorizations = append(f.authorizations, r.Header.Get("Authorization"))
		status := f.emailStatus
		f.mu.Unlock()

		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`)
			return
		}
		_, _ = io.WriteString(w, `{"statusCode":500,"message":"internal error"}`)
	}))

	t.Cleanup(func() {
		f.turnstile.Close()
		f.resend.Close()
	})
	return f
}

func newContactFlowRouter(f *fakeProviders, limit int) *gin.Engine {
	client := httpclient.NewClientWithTimeout(5 * time.Second)
	verifier := turnstile.NewVerifier("turnstile-secret", f.turnstile.URL, client)
	mailer := resend.NewClient("re_test_key", f.resend.URL, client)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Policy{Limit: limit, Window: time.Hour})

	service := services.NewContactService(limiter, verifier, mailer, config.ContactConfig{
		From:    "Contact Form <onboarding@resend.dev>",
		To:      "owner@example.com",
		Subject: "PERSONAL WEBSITE CONTACT",
	})
	return newContactRouter(service)
}

func TestContactFlow_DeliversOneEmail(t *testing.T) {
	f := newFakeProviders(t)
	router := newContactFlowRouter(f, 5)

	w := postContact(router, validContactBody, map[string]string{"X-Forwarded-For": "203.0.113.7"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, 1, f.verifyCalls)
	require.Len(t, f.emails, 1)
	assert.Equal(t, "ada@example.com", f.emails[0].ReplyTo)
	assert.Equal(t, []string{"owner@example.com"}, f.emails[0].To)
	assert.Equal(t, "PERSONAL WEBSITE CONTACT", f.emails[0].Subject)
	assert.Contains(t, f.emails[0].HTML, "Interested in advisory services for our startup.")
	assert.Equal(t, "Bearer re_test_key", f.authorizations[0])
}

func TestContactFlow_RejectedChallengeSendsNothing(t *testing.T) {
	f := newFakeProviders(t)
	f.verifySuccess = false
	router := newContactFlowRouter(f, 5)

	w := postContact(router, validContactBody, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"CAPTCHA verification failed. Please try again."}`, w.Body.String())

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.emails)
}

func TestContactFlow_RateLimitPrecedesVerification(t *testing.T) {
	f := newFakeProviders(t)
	router := newContactFlowRouter(f, 2)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.9"}

	for i := 0; i < 2; i++ {
		w := postContact(router, validContactBody, headers)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postContact(router, validContactBody, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// another client is unaffected
	other := postContact(router, validContactBody, map[string]string{"X-Forwarded-For": "203.0.113.10"})
	assert.Equal(t, http.StatusOK, other.Code)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, 3, f.verifyCalls)
	assert.Len(t, f.emails, 3)
}

func TestContactFlow_InvalidInputConsumesNoBudget(t *testing.T) {
	f := newFakeProviders(t)
	router := newContactFlowRouter(f, 1)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.11"}

	bad := postContact(router, `{"name":"Ada","email":"ada@example.com","message":"Hi","challengeToken":"t"}`, headers)
	require.Equal(t, http.StatusBadRequest, bad.Code)

	w := postContact(router, validContactBody, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, 1, f.verifyCalls)
}

func TestContactFlow_ProviderFailure(t *testing.T) {
	f := newFakeProviders(t)
	f.emailStatus = http.StatusInternalServerError
	router := newContactFlowRouter(f, 5)

	w := postContact(router, validContactBody, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Unable to send message. Please try again later."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "internal error")

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.emails, 1)
}
