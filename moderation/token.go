package moderation

import "regexp"

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<meta\s+name=["']csrf-token["']\s+content=["']([^"']+)["']`),
	regexp.MustCompile(`(?i)<input[^>]*\sname=["'](?:_token|csrf_token)["'][^>]*\svalue=["']([^"']+)["']`),
}

// ExtractToken scrapes the anti-forgery token out of the moderation front page.
// The meta tag is tried first, then the hidden form field.
func ExtractToken(html string) (string, bool) {
	for _, pattern := range tokenPatterns {
		if match := pattern.FindStringSubmatch(html); len(match) == 2 {
			return match[1], true
		}
	}
	return "", false
}
