package db

import (
	"net/url"
	"regexp"
	"strings"
)

// SQLiteDSN builds the connection string for a database file at path.
// Foreign keys are enforced and writers wait up to 5s on a locked file.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// MemoryDSN builds a named shared in-memory database, used by tests.
func MemoryDSN(name string) string {
	return "file:" + url.PathEscape(name) + "?mode=memory&cache=shared&_foreign_keys=on"
}

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizePostgresDSN accepts either a URL style DSN (postgres://...) or a
// key=value list. It trims quotes and whitespace and defaults sslmode to
// disable for key=value lists.
func NormalizePostgresDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

var (
	kvPasswordRegex  = regexp.MustCompile(`(password=)([^\s]+)`)
	urlPasswordRegex = regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
)

// MaskDSN hides passwords before a DSN is logged.
func MaskDSN(dsn string) string {
	masked := kvPasswordRegex.ReplaceAllString(dsn, `${1}***`)
	return urlPasswordRegex.ReplaceAllString(masked, `${1}***${3}`)
}
