package policy

import (
	"fmt"
	"strings"
)

// BotCategory classifies the client behind a User-Agent
type BotCategory string

const (
	CategoryBrowser      BotCategory = "BROWSER"
	CategorySearchEngine BotCategory = "SEARCH_ENGINE"
	CategoryPreview      BotCategory = "PREVIEW"
	CategoryAutomated    BotCategory = "AUTOMATED"
)

// DefaultAllowedBots are admitted even though they are automated
var DefaultAllowedBots = []BotCategory{CategorySearchEngine, CategoryPreview}

// ParseBotCategory accepts "SEARCH_ENGINE" as well as "CATEGORY:SEARCH_ENGINE"
func ParseBotCategory(s string) (BotCategory, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "CATEGORY:")
	switch c := BotCategory(name); c {
	case CategoryBrowser, CategorySearchEngine, CategoryPreview, CategoryAutomated:
		return c, nil
	default:
		return "", fmt.Errorf("unknown bot category %q", s)
	}
}

// Signatures are matched in order against the lower-cased User-Agent.
// Named crawlers come before the generic markers they contain.
var botSignatures = []struct {
	category BotCategory
	markers  []string
}{
	{CategorySearchEngine, []string{"googlebot", "bingbot", "duckduckbot", "baiduspider", "yandex", "applebot"}},
	{CategoryPreview, []string{"slackbot", "twitterbot", "facebookexternalhit", "discordbot", "linkedinbot", "whatsapp", "telegrambot"}},
	{CategoryAutomated, []string{
		"curl", "wget", "python-requests", "go-http-client", "scrapy", "headless", "phantomjs",
		"bot", "crawler", "spider",
	}},
}

// BotDetector classifies User-Agents and decides which categories may pass
type BotDetector struct {
	allowed map[BotCategory]bool
}

// NewBotDetector creates a detector that admits the allowed categories.
// Browsers are always admitted.
func NewBotDetector(allowed []BotCategory) *BotDetector {
	d := &BotDetector{allowed: map[BotCategory]bool{CategoryBrowser: true}}
	for _, c := range allowed {
		d.allowed[c] = true
	}
	return d
}

// Classify returns the category of the User-Agent. An empty agent is automated.
func (d *BotDetector) Classify(userAgent string) BotCategory {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return CategoryAutomated
	}
	for _, sig := range botSignatures {
		for _, marker := range sig.markers {
			if strings.Contains(ua, marker) {
				return sig.category
			}
		}
	}
	return CategoryBrowser
}

// Check classifies the agent and reports whether it must be denied
func (d *BotDetector) Check(userAgent string) (BotCategory, bool) {
	category := d.Classify(userAgent)
	return category, !d.allowed[category]
}
