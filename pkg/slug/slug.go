package slug

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Generate builds a URL-friendly slug from a display name.
// Accents are folded: "Zürich Tech Day 2025" -> "zurich-tech-day-2025".
func Generate(name string) string {
	var result strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(name)) {
		// drop combining marks left over from decomposition
		if r >= 0x0300 && r <= 0x036F {
			continue
		}
		result.WriteRune(r)
	}

	s := nonAlnumRegex.ReplaceAllString(result.String(), "-")
	return strings.Trim(s, "-")
}
