package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTechEvents(t *testing.T) {
	rows := [][]string{
		{"Name", "Start", "Finish", "Location", "Category"},
		{"Swiss Tech Summit", "Date(2025,2,15)", "Date(2025,2,16)", "Zurich, ZH", "Conference", "https://summit.example.ch", "CHF 450"},
		{"", "Date(2025,3,1)"},
		{"Swiss Tech Summit", "2025-09-01", "2025-09-01", "Basel, BS"},
		{"  Zürich Founders  ", "not a date"},
	}

	events := ParseTechEvents(rows)
	require.Len(t, events, 3)

	assert.Equal(t, "swiss-tech-summit", events[0].Slug)
	assert.Equal(t, "2025-03-15", events[0].StartDate)
	assert.Equal(t, "2025-03-16", events[0].FinishDate)
	assert.Equal(t, "ZH", events[0].Canton())
	assert.Equal(t, "CHF 450", events[0].TicketPrice)
	assert.Empty(t, events[0].Description)

	assert.Equal(t, "swiss-tech-summit-2", events[1].Slug)
	assert.Equal(t, "BS", events[1].Canton())

	assert.Equal(t, "Zürich Founders", events[2].Name)
	assert.Equal(t, "zurich-founders", events[2].Slug)
	assert.Equal(t, "not a date", events[2].StartDate)
}

func TestParseTechEvents_HeaderOnly(t *testing.T) {
	assert.Empty(t, ParseTechEvents([][]string{{"Name"}}))
	assert.Empty(t, ParseTechEvents(nil))
}

func TestParseVentureFunds(t *testing.T) {
	rows := [][]string{
		{},
		{"Name", "Sector"},
		{"Alpine Ventures", "Fintech, SaaS", "Seed", "Switzerland", "Founders", "CHF 100M",
			"https://alpine.example", "N/A", "pitchbook.com/alpine", "https://linkedin.com/company/alpine", "Early stage"},
		{"", "Deeptech"},
	}

	funds := ParseVentureFunds(rows)
	require.Len(t, funds, 1)

	fund := funds[0]
	assert.Equal(t, "Alpine Ventures", fund.Name)
	assert.Equal(t, "Fintech, SaaS", fund.Sector)
	assert.Equal(t, "https://alpine.example", fund.OfficialURL)
	assert.Empty(t, fund.CrunchbaseURL)
	assert.Empty(t, fund.PitchbookURL)
	assert.Equal(t, "https://linkedin.com/company/alpine", fund.LinkedinURL)
	assert.Equal(t, "Early stage", fund.Description)
}

func TestParseSheetDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{input: "Date(2025,0,31)", expected: "2025-01-31", ok: true},
		{input: "Date(2024,11,1,10,30,0)", expected: "2024-12-01", ok: true},
		{input: "2025-06-01", expected: "2025-06-01", ok: true},
		{input: "01.06.2025", expected: "2025-06-01", ok: true},
		{input: "June 1, 2025", expected: "2025-06-01", ok: true},
		{input: "TBD", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed, ok := ParseSheetDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, parsed.Format(DateLayout))
				assert.Equal(t, time.UTC, parsed.Location())
			}
		})
	}
}

func TestNormalizeSheetDate_PassesThroughUnknown(t *testing.T) {
	assert.Equal(t, "Q3 2025", NormalizeSheetDate("Q3 2025"))
}

func TestTechEvent_Canton(t *testing.T) {
	assert.Equal(t, "ZH", (&TechEvent{Location: "Zurich, ZH"}).Canton())
	assert.Equal(t, "Online", (&TechEvent{Location: "Online"}).Canton())
	assert.Equal(t, "", (&TechEvent{}).Canton())
}
