package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jmiseikis/site-api/internal/models"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/metrics"
	"github.com/jmiseikis/site-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DirectoryService serves the tech events and venture fund directories
type DirectoryService struct {
	source DirectorySource
	now    func() time.Time
}

// NewDirectoryService creates a new directory service instance
func NewDirectoryService(source DirectorySource) *DirectoryService {
	return &DirectoryService{
		source: source,
		now:    time.Now,
	}
}

// ListEvents returns the events matching filter, with calendar links attached.
// Options are always computed over the full list.
func (s *DirectoryService) ListEvents(ctx context.Context, filter models.EventFilter) (*models.EventListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "directory.list_events")
	events, err := s.source.Events(ctx)
	tracing.EndSpan(span, err)
	if err != nil {
		metrics.DirectoryRequests.WithLabelValues("events", "error").Inc()
		return nil, err
	}

	items := make([]models.TechEvent, 0, len(events))
	for i := range events {
		if !matchEvent(&events[i], filter) {
			continue
		}
		event := events[i]
		event.GoogleCalendarURL = GoogleCalendarURL(&event)
		event.OutlookCalendarURL = OutlookCalendarURL(&event)
		items = append(items, event)
	}

	metrics.DirectoryRequests.WithLabelValues("events", "success").Inc()
	return &models.EventListResponse{
		Items:   items,
		Total:   len(events),
		Count:   len(items),
		Options: eventOptions(events),
	}, nil
}

// EventICS renders the calendar file for the event with the given slug
func (s *DirectoryService) EventICS(ctx context.Context, slug string) (*CalendarFile, error) {
	ctx, span := tracing.StartSpan(ctx, "directory.event_ics", attribute.String("event.slug", slug))
	events, err := s.source.Events(ctx)
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	for i := range events {
		if events[i].Slug != slug {
			continue
		}
		content, ok := RenderICS(&events[i], s.now())
		if !ok {
			logger.Warn("Event has no parseable dates", zap.String("slug", slug),
				zap.String("start", events[i].StartDate), zap.String("finish", events[i].FinishDate))
			return nil, apperrors.NotFoundError("calendar entry")
		}
		return &CalendarFile{Filename: slug + ".ics", Content: content}, nil
	}

	return nil, apperrors.NotFoundError("event")
}

// ListFunds returns the venture funds matching filter
func (s *DirectoryService) ListFunds(ctx context.Context, filter models.FundFilter) (*models.FundListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "directory.list_funds")
	funds, err := s.source.Funds(ctx)
	tracing.EndSpan(span, err)
	if err != nil {
		metrics.DirectoryRequests.WithLabelValues("vcs", "error").Inc()
		return nil, err
	}

	items := make([]models.VentureFund, 0, len(funds))
	for i := range funds {
		if matchFund(&funds[i], filter) {
			items = append(items, funds[i])
		}
	}

	metrics.DirectoryRequests.WithLabelValues("vcs", "success").Inc()
	return &models.FundListResponse{
		Items:   items,
		Total:   len(funds),
		Count:   len(items),
		Options: fundOptions(funds),
	}, nil
}

func active(value string) bool {
	return value != "" && value != "all"
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func matchEvent(e *models.TechEvent, f models.EventFilter) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !containsFold(e.Name, q) && !containsFold(e.Description, q) && !containsFold(e.Location, q) {
			return false
		}
	}
	if active(f.Category) && e.Category != f.Category {
		return false
	}
	if active(f.Size) && e.Size != f.Size {
		return false
	}
	if active(f.Location) && e.Canton() != f.Location {
		return false
	}
	if active(f.Scope) && e.Scope != f.Scope {
		return false
	}
	if active(f.Price) {
		price := strings.ToLower(e.TicketPrice)
		free := strings.Contains(price, "free")
		invite := strings.Contains(price, "invite")
		switch strings.ToLower(f.Price) {
		case "free":
			return free
		case "paid":
			return !free && !invite
		case "invite":
			return invite
		}
	}
	return true
}

func matchFund(v *models.VentureFund, f models.FundFilter) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !containsFold(v.Name, q) && !containsFold(v.Description, q) && !containsFold(v.Sector, q) {
			return false
		}
	}
	if active(f.Sector) && !strings.Contains(v.Sector, f.Sector) {
		return false
	}
	if active(f.Round) && !strings.Contains(v.InvestmentRounds, f.Round) {
		return false
	}
	if active(f.Geo) && !strings.Contains(v.TargetGeography, f.Geo) {
		return false
	}
	if active(f.Audience) && !strings.Contains(v.TargetAudience, f.Audience) {
		return false
	}
	return true
}

// orderedSet keeps the first-seen order of distinct non-empty values
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(value string) {
	if value == "" {
		return
	}
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.items = append(s.items, value)
}

func (s *orderedSet) addList(value string) {
	for _, part := range strings.Split(value, ",") {
		s.add(strings.TrimSpace(part))
	}
}

func (s *orderedSet) sorted() []string {
	sort.Strings(s.items)
	return s.items
}

func eventOptions(events []models.TechEvent) models.EventFilterOptions {
	categories, sizes, locations, scopes := newOrderedSet(), newOrderedSet(), newOrderedSet(), newOrderedSet()
	for i := range events {
		categories.add(events[i].Category)
		sizes.add(events[i].Size)
		locations.add(events[i].Canton())
		scopes.add(events[i].Scope)
	}
	return models.EventFilterOptions{
		Categories: categories.items,
		Sizes:      sizes.items,
		Locations:  locations.items,
		Scopes:     scopes.items,
	}
}

func fundOptions(funds []models.VentureFund) models.FundFilterOptions {
	sectors, rounds, geos, audiences := newOrderedSet(), newOrderedSet(), newOrderedSet(), newOrderedSet()
	for i := range funds {
		sectors.addList(funds[i].Sector)
		rounds.addList(funds[i].InvestmentRounds)
		geos.addList(funds[i].TargetGeography)
		audiences.add(strings.TrimSpace(funds[i].TargetAudience))
	}
	return models.FundFilterOptions{
		Sectors:   sectors.sorted(),
		Rounds:    rounds.sorted(),
		Geos:      geos.sorted(),
		Audiences: audiences.sorted(),
	}
}
