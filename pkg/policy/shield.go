package policy

import (
	"net/url"
	"regexp"
	"strings"
)

// Threat classes reported by the shield
const (
	ThreatSQLInjection     = "sql_injection"
	ThreatXSS              = "xss"
	ThreatPathTraversal    = "path_traversal"
	ThreatCommandInjection = "command_injection"
)

type signature struct {
	threat  string
	pattern *regexp.Regexp
}

var shieldSignatures = []signature{
	{ThreatSQLInjection, regexp.MustCompile(`union(\s|\+|/\*.*?\*/)+(all(\s|\+)+)?select`)},
	{ThreatSQLInjection, regexp.MustCompile(`'\s*or\s*'?\w+'?\s*=\s*'?\w+`)},
	{ThreatSQLInjection, regexp.MustCompile(`;\s*drop\s+table`)},
	{ThreatSQLInjection, regexp.MustCompile(`'\s*(--|#)`)},
	{ThreatSQLInjection, regexp.MustCompile(`\b(sleep|benchmark|pg_sleep)\s*\(`)},
	{ThreatXSS, regexp.MustCompile(`<\s*script`)},
	{ThreatXSS, regexp.MustCompile(`javascript\s*:`)},
	{ThreatXSS, regexp.MustCompile(`\bon(error|load)\s*=`)},
	{ThreatPathTraversal, regexp.MustCompile(`\.\.[/\\]`)},
	{ThreatPathTraversal, regexp.MustCompile(`/etc/(passwd|shadow)`)},
	{ThreatCommandInjection, regexp.MustCompile(`;\s*(cat|ls|rm|wget|curl|id|uname)\b`)},
	{ThreatCommandInjection, regexp.MustCompile(`\|\s*(sh|bash)\b`)},
	{ThreatCommandInjection, regexp.MustCompile(`\$\(`)},
	{ThreatCommandInjection, regexp.MustCompile("`")},
}

// Shield matches request paths and queries against common attack signatures
type Shield struct {
	signatures []signature
}

// NewShield creates a shield with the built-in signatures
func NewShield() *Shield {
	return &Shield{signatures: shieldSignatures}
}

// Inspect returns the threat class of the first matching signature
func (s *Shield) Inspect(req Request) (string, bool) {
	for _, target := range []string{decodePath(req.Path), decodeQuery(req.Query)} {
		if target == "" {
			continue
		}
		for _, sig := range s.signatures {
			if sig.pattern.MatchString(target) {
				return sig.threat, true
			}
		}
	}
	return "", false
}

// decodePath unescapes twice so double-encoded payloads are caught
func decodePath(p string) string {
	for i := 0; i < 2; i++ {
		decoded, err := url.PathUnescape(p)
		if err != nil || decoded == p {
			break
		}
		p = decoded
	}
	return strings.ToLower(p)
}

func decodeQuery(q string) string {
	for i := 0; i < 2; i++ {
		decoded, err := url.QueryUnescape(q)
		if err != nil || decoded == q {
			break
		}
		q = decoded
	}
	return strings.ToLower(q)
}
