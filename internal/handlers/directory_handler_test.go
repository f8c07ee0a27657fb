package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/internal/services"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockDirectoryService struct {
	mock.Mock
}

func (m *mockDirectoryService) ListEvents(ctx context.Context, filter models.EventFilter) (*models.EventListResponse, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventListResponse), args.Error(1)
}

func (m *mockDirectoryService) EventICS(ctx context.Context, slug string) (*services.CalendarFile, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CalendarFile), args.Error(1)
}

func (m *mockDirectoryService) ListFunds(ctx context.Context, filter models.FundFilter) (*models.FundListResponse, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundListResponse), args.Error(1)
}

func newDirectoryRouter(service services.DirectoryServiceInterface) *gin.Engine {
	handler := NewDirectoryHandler(service)
	router := gin.New()
	router.GET("/events", handler.ListEvents)
	router.GET("/events/:slug/ics", handler.EventICS)
	router.GET("/vcs", handler.ListFunds)
	return router
}

func serve(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", target, http.NoBody))
	return w
}

func TestDirectoryHandler_ListEvents(t *testing.T) {
	service := new(mockDirectoryService)
	filter := models.EventFilter{Query: "ai", Category: "Meetup", Price: "free"}
	service.On("ListEvents", mock.Anything, filter).Return(&models.EventListResponse{
		Items: []models.TechEvent{{Slug: "ai-meetup", Name: "AI Meetup"}},
		Total: 3,
		Count: 1,
	}, nil).Once()

	w := serve(newDirectoryRouter(service), "/events?q=ai&category=Meetup&price=free")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `"slug":"ai-meetup"`)
	assert.Contains(t, w.Body.String(), `"total":3`)
	service.AssertExpectations(t)
}

func TestDirectoryHandler_ListEvents_SourceFailure(t *testing.T) {
	service := new(mockDirectoryService)
	service.On("ListEvents", mock.Anything, models.EventFilter{}).
		Return(nil, apperrors.UpstreamError("google_sheets", errors.New("status 500"))).Once()

	w := serve(newDirectoryRouter(service), "/events")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Failed to load directory"}`, w.Body.String())
}

func TestDirectoryHandler_EventICS(t *testing.T) {
	service := new(mockDirectoryService)
	service.On("EventICS", mock.Anything, "ai-meetup").Return(&services.CalendarFile{
		Filename: "ai-meetup.ics",
		Content:  []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
	}, nil).Once()
	service.On("EventICS", mock.Anything, "missing").Return(nil, apperrors.NotFoundError("event")).Once()
	service.On("EventICS", mock.Anything, "broken").
		Return(nil, apperrors.UpstreamError("google_sheets", errors.New("timeout"))).Once()

	router := newDirectoryRouter(service)

	t.Run("download", func(t *testing.T) {
		w := serve(router, "/events/ai-meetup/ics")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="ai-meetup.ics"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		w := serve(router, "/events/missing/ics")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Event not found"}`, w.Body.String())
	})

	t.Run("source failure", func(t *testing.T) {
		w := serve(router, "/events/broken/ics")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestDirectoryHandler_ListFunds(t *testing.T) {
	service := new(mockDirectoryService)
	filter := models.FundFilter{Sector: "Fintech", Round: "Seed"}
	service.On("ListFunds", mock.Anything, filter).Return(&models.FundListResponse{
		Items: []models.VentureFund{{Name: "Alpine Ventures"}},
		Total: 2,
		Count: 1,
	}, nil).Once()

	w := serve(newDirectoryRouter(service), "/vcs?sector=Fintech&round=Seed")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `"name":"Alpine Ventures"`)
	service.AssertExpectations(t)
}
