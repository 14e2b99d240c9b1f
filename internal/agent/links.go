package agent

import (
	"regexp"
	"slices"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\x60\[\]{}|\\^]+`)

// trailing characters that end a sentence rather than a URL. A closing
// parenthesis is handled by trimURL.
const urlTrailers = ".,;:!?*"

// ExtractLinks returns the distinct http(s) URLs in text, sorted.
func ExtractLinks(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	links := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		m = trimURL(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		links = append(links, m)
	}
	slices.Sort(links)
	return links
}

// trimURL drops sentence punctuation from the end of u, and closing
// parentheses that have no opening match inside u.
func trimURL(u string) string {
	for u != "" {
		last := u[len(u)-1]
		switch {
		case strings.IndexByte(urlTrailers, last) >= 0:
			u = u[:len(u)-1]
		case strings.HasSuffix(u, "»"):
			u = strings.TrimSuffix(u, "»")
		case last == ')' && strings.Count(u, ")") > strings.Count(u, "("):
			u = u[:len(u)-1]
		default:
			return u
		}
	}
	return u
}
