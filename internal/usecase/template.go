package usecase

import (
	"regexp"
	"strconv"
	"time"
)

var (
	codePlaceholder    = regexp.MustCompile(`(?i)\{code\}`)
	expiresPlaceholder = regexp.MustCompile(`(?i)\{expires\}`)
)

// RenderTemplate substitutes every {code} and {expires} placeholder, matched case-insensitively.
// {expires} renders the expiry window in whole seconds.
func RenderTemplate(tmpl, code string, expiry time.Duration) string {
	seconds := strconv.FormatInt(int64(expiry/time.Second), 10)
	out := codePlaceholder.ReplaceAllLiteralString(tmpl, code)
	return expiresPlaceholder.ReplaceAllLiteralString(out, seconds)
}
