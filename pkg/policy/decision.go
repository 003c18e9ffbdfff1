package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUpstream is returned when a rule could not be evaluated
var ErrUpstream = errors.New("policy oracle unavailable")

// Conclusion is the outcome of a policy evaluation
type Conclusion int

const (
	Allow Conclusion = iota
	Deny
)

func (c Conclusion) String() string {
	if c == Deny {
		return "DENY"
	}
	return "ALLOW"
}

// DenialReason says which rule family produced a denial
type DenialReason int

const (
	ReasonNone DenialReason = iota
	ReasonBot
	ReasonShield
	ReasonRateLimit
)

func (r DenialReason) String() string {
	switch r {
	case ReasonBot:
		return "BOT"
	case ReasonShield:
		return "SHIELD"
	case ReasonRateLimit:
		return "RATE_LIMIT"
	default:
		return "NONE"
	}
}

// Mode controls whether a matching rule blocks the request
type Mode string

const (
	ModeLive   Mode = "LIVE"
	ModeDryRun Mode = "DRY_RUN"
)

// ParseMode parses LIVE or DRY_RUN, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeLive:
		return ModeLive, nil
	case ModeDryRun:
		return ModeDryRun, nil
	default:
		return "", fmt.Errorf("invalid policy mode %q: must be LIVE or DRY_RUN", s)
	}
}

// Decision is the result of Oracle.Protect
type Decision struct {
	Conclusion Conclusion
	Reason     DenialReason
	// Rule names the rule that denied, or the tightest window when allowed
	Rule string
	// Limit and Remaining describe the tightest window evaluated
	Limit     int
	Remaining int
	Reset     time.Time
	// Threat is the shield signature class that matched, if any
	Threat string
	// Bot is the category the User-Agent was classified as
	Bot BotCategory
}

// IsDenied reports whether the request must be rejected
func (d Decision) IsDenied() bool {
	return d.Conclusion == Deny
}
