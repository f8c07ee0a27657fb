package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmiseikis/site-api/pkg/slug"
)

// DateLayout is the normalized date format exposed by the directory API
const DateLayout = "2006-01-02"

// Header rows at the top of each published sheet
const (
	eventHeaderRows = 1
	fundHeaderRows  = 2 // first row is blank, second holds the column names
)

var sheetDateRegex = regexp.MustCompile(`^Date\((\d+),(\d+),(\d+)`)

var fallbackDateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// TechEvent represents one row of the events directory
type TechEvent struct {
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	StartDate      string `json:"startDate"`
	FinishDate     string `json:"finishDate"`
	Location       string `json:"location"`
	Category       string `json:"category"`
	OfficialURL    string `json:"officialUrl"`
	TicketPrice    string `json:"ticketPrice"`
	Size           string `json:"size"`
	LogoURL        string `json:"logoUrl"`
	TargetAudience string `json:"targetAudience"`
	Scope          string `json:"scope"`
	Description    string `json:"description"`

	GoogleCalendarURL  string `json:"googleCalendarUrl,omitempty"`
	OutlookCalendarURL string `json:"outlookCalendarUrl,omitempty"`
}

// Canton returns the trailing ", "-separated segment of the location
func (e *TechEvent) Canton() string {
	parts := strings.Split(e.Location, ", ")
	return parts[len(parts)-1]
}

// VentureFund represents one row of the venture capital directory
type VentureFund struct {
	Name              string `json:"name"`
	Sector            string `json:"sector"`
	InvestmentRounds  string `json:"investmentRounds"`
	TargetGeography   string `json:"targetGeography"`
	TargetAudience    string `json:"targetAudience"`
	EstimatedFundSize string `json:"estimatedFundSize"`
	OfficialURL       string `json:"officialUrl"`
	CrunchbaseURL     string `json:"crunchbaseUrl"`
	PitchbookURL      string `json:"pitchbookUrl"`
	LinkedinURL       string `json:"linkedinUrl"`
	Description       string `json:"description"`
}

// EventFilter holds the query parameters accepted by the events listing.
// Empty values and "all" disable a filter.
type EventFilter struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Size     string `form:"size"`
	Scope    string `form:"scope"`
	Location string `form:"location"`
	Price    string `form:"price"`
}

// FundFilter holds the query parameters accepted by the venture fund listing
type FundFilter struct {
	Query    string `form:"q"`
	Sector   string `form:"sector"`
	Round    string `form:"round"`
	Geo      string `form:"geo"`
	Audience string `form:"audience"`
}

// EventFilterOptions lists the distinct values available for each event filter
type EventFilterOptions struct {
	Categories []string `json:"categories"`
	Sizes      []string `json:"sizes"`
	Locations  []string `json:"locations"`
	Scopes     []string `json:"scopes"`
}

// FundFilterOptions lists the distinct values available for each fund filter
type FundFilterOptions struct {
	Sectors   []string `json:"sectors"`
	Rounds    []string `json:"rounds"`
	Geos      []string `json:"geos"`
	Audiences []string `json:"audiences"`
}

// EventListResponse is the events listing body
type EventListResponse struct {
	Items   []TechEvent        `json:"items"`
	Total   int                `json:"total"`
	Count   int                `json:"count"`
	Options EventFilterOptions `json:"options"`
}

// FundListResponse is the venture fund listing body
type FundListResponse struct {
	Items   []VentureFund     `json:"items"`
	Total   int               `json:"total"`
	Count   int               `json:"count"`
	Options FundFilterOptions `json:"options"`
}

// ParseTechEvents converts sheet rows to events. Rows without a name are dropped
// and repeated names get a numeric slug suffix.
func ParseTechEvents(rows [][]string) []TechEvent {
	if len(rows) <= eventHeaderRows {
		return []TechEvent{}
	}

	events := make([]TechEvent, 0, len(rows)-eventHeaderRows)
	seen := make(map[string]int)

	for _, row := range rows[eventHeaderRows:] {
		name := cell(row, 0)
		if name == "" {
			continue
		}

		event := TechEvent{
			Name:           name,
			StartDate:      NormalizeSheetDate(cell(row, 1)),
			FinishDate:     NormalizeSheetDate(cell(row, 2)),
			Location:       cell(row, 3),
			Category:       cell(row, 4),
			OfficialURL:    cell(row, 5),
			TicketPrice:    cell(row, 6),
			Size:           cell(row, 7),
			LogoURL:        cell(row, 8),
			TargetAudience: cell(row, 9),
			Scope:          cell(row, 10),
			Description:    cell(row, 11),
		}

		base := slug.Generate(name)
		if base == "" {
			base = "event"
		}
		seen[base]++
		if n := seen[base]; n > 1 {
			event.Slug = fmt.Sprintf("%s-%d", base, n)
		} else {
			event.Slug = base
		}

		events = append(events, event)
	}

	return events
}

// ParseVentureFunds converts sheet rows to funds. Rows without a name are dropped.
func ParseVentureFunds(rows [][]string) []VentureFund {
	if len(rows) <= fundHeaderRows {
		return []VentureFund{}
	}

	funds := make([]VentureFund, 0, len(rows)-fundHeaderRows)
	for _, row := range rows[fundHeaderRows:] {
		name := cell(row, 0)
		if name == "" {
			continue
		}

		funds = append(funds, VentureFund{
			Name:              name,
			Sector:            cell(row, 1),
			InvestmentRounds:  cell(row, 2),
			TargetGeography:   cell(row, 3),
			TargetAudience:    cell(row, 4),
			EstimatedFundSize: cell(row, 5),
			OfficialURL:       cleanURL(cell(row, 6)),
			CrunchbaseURL:     cleanURL(cell(row, 7)),
			PitchbookURL:      cleanURL(cell(row, 8)),
			LinkedinURL:       cleanURL(cell(row, 9)),
			Description:       cell(row, 10),
		})
	}

	return funds
}

// NormalizeSheetDate converts Google's Date(y,m,d) cells (zero-based month) and
// common date strings to YYYY-MM-DD. Anything else is returned unchanged.
func NormalizeSheetDate(value string) string {
	if t, ok := ParseSheetDate(value); ok {
		return t.Format(DateLayout)
	}
	return value
}

// ParseSheetDate parses the forms accepted by NormalizeSheetDate
func ParseSheetDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if m := sheetDateRegex.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC), true
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			y, mo, d := t.Date()
			return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func cleanURL(value string) string {
	if value == "N/A" || !strings.HasPrefix(value, "http") {
		return ""
	}
	return value
}
