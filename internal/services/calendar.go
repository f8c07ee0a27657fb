package services

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmiseikis/site-api/internal/models"
)

const (
	googleCalendarBase  = "https://calendar.google.com/calendar/render"
	outlookCalendarBase = "https://outlook.live.com/calendar/0/deeplink/compose"

	icsProductID   = "-//Tech Events Switzerland//EN"
	icsUIDDomain   = "techeventsswitzerland"
	icsLineLimit   = 75
	compactDateFmt = "20060102"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	icsEscaper      = strings.NewReplacer(`\`, `\\`, ",", `\,`, ";", `\;`, "\r\n", `\n`, "\n", `\n`)
)

// CalendarFile is a rendered iCalendar download
type CalendarFile struct {
	Filename string
	Content  []byte
}

func eventDates(event *models.TechEvent) (start, end time.Time, ok bool) {
	start, okStart := models.ParseSheetDate(event.StartDate)
	end, okEnd := models.ParseSheetDate(event.FinishDate)
	return start, end, okStart && okEnd
}

func eventDetails(event *models.TechEvent) string {
	return event.Description + "\n\nMore info: " + event.OfficialURL
}

// GoogleCalendarURL builds an all-day "add event" link. Google treats the end date as exclusive.
func GoogleCalendarURL(event *models.TechEvent) string {
	start, end, ok := eventDates(event)
	if !ok {
		return ""
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", event.Name)
	params.Set("dates", start.Format(compactDateFmt)+"/"+end.AddDate(0, 0, 1).Format(compactDateFmt))
	params.Set("location", event.Location)
	params.Set("details", eventDetails(event))

	return googleCalendarBase + "?" + params.Encode()
}

// OutlookCalendarURL builds an all-day Outlook compose link
func OutlookCalendarURL(event *models.TechEvent) string {
	start, end, ok := eventDates(event)
	if !ok {
		return ""
	}

	params := url.Values{}
	params.Set("subject", event.Name)
	params.Set("startdt", start.Format(models.DateLayout))
	params.Set("enddt", end.Format(models.DateLayout))
	params.Set("location", event.Location)
	params.Set("body", eventDetails(event))
	params.Set("allday", "true")
	params.Set("path", "/calendar/action/compose")

	return outlookCalendarBase + "?" + params.Encode()
}

// RenderICS renders a single all-day VEVENT. ok is false when the event dates don't parse.
func RenderICS(event *models.TechEvent, now time.Time) (content []byte, ok bool) {
	start, end, ok := eventDates(event)
	if !ok {
		return nil, false
	}

	uid := strings.ToLower(whitespaceRegex.ReplaceAllString(event.Name, "-")) +
		"-" + start.Format(compactDateFmt) + "@" + icsUIDDomain

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + icsProductID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + now.UTC().Format("20060102T150405Z"),
		"DTSTART;VALUE=DATE:" + start.Format(compactDateFmt),
		"DTEND;VALUE=DATE:" + end.AddDate(0, 0, 1).Format(compactDateFmt),
		"SUMMARY:" + icsEscaper.Replace(event.Name),
		"LOCATION:" + icsEscaper.Replace(event.Location),
		"DESCRIPTION:" + icsEscaper.Replace(eventDetails(event)),
	}
	if event.OfficialURL != "" && event.OfficialURL != "[URL]" {
		lines = append(lines, "URL:"+event.OfficialURL)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(foldICSLine(line))
		b.WriteString("\r\n")
	}
	return []byte(b.String()), true
}

// foldICSLine splits content lines longer than 75 octets without breaking a rune
func foldICSLine(line string) string {
	if len(line) <= icsLineLimit {
		return line
	}

	var b strings.Builder
	limit := icsLineLimit
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines start with a space
		limit = icsLineLimit - 1
	}
	b.WriteString(line)
	return b.String()
}
