package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/policy"
)

// DefaultLimitInterval is the window every role budget is measured over
const DefaultLimitInterval = time.Minute

// DefaultRoleBudgets returns the requests allowed per minute for each role
func DefaultRoleBudgets() map[auth.Role]int {
	return map[auth.Role]int{
		auth.RoleGuest: 5,
		auth.RoleUser:  10,
		auth.RoleAdmin: 20,
	}
}

// RoleLimits maps roles to sliding-window budgets. It is read-only after construction.
type RoleLimits struct {
	budgets  map[auth.Role]int
	interval time.Duration
	mode     policy.Mode
}

// NewRoleLimits copies budgets. Roles missing from budgets fall back to the defaults.
func NewRoleLimits(budgets map[auth.Role]int, interval time.Duration, mode policy.Mode) *RoleLimits {
	if interval <= 0 {
		interval = DefaultLimitInterval
	}
	if mode == "" {
		mode = policy.ModeLive
	}

	merged := DefaultRoleBudgets()
	for role, max := range budgets {
		if max > 0 {
			merged[role] = max
		}
	}

	return &RoleLimits{
		budgets:  merged,
		interval: interval,
		mode:     mode,
	}
}

// Limit returns the budget for role. Unknown roles get the guest budget.
func (l *RoleLimits) Limit(role auth.Role) int {
	if max, ok := l.budgets[role]; ok {
		return max
	}
	return l.budgets[auth.RoleGuest]
}

// Window returns the policy window for role, named "<role>-rate-limit"
func (l *RoleLimits) Window(role auth.Role) policy.Window {
	if _, ok := l.budgets[role]; !ok {
		role = auth.RoleGuest
	}
	return policy.Window{
		Name:     fmt.Sprintf("%s-rate-limit", role),
		Max:      l.Limit(role),
		Interval: l.interval,
		Mode:     l.mode,
	}
}

// ExceededMessage is the log line written when role runs out of budget
func (l *RoleLimits) ExceededMessage(role auth.Role) string {
	name := string(role)
	if name == "" {
		name = string(auth.RoleGuest)
	}
	return fmt.Sprintf("%s request limit exceeded (%d per %s). Slow down",
		strings.ToUpper(name[:1])+name[1:], l.Limit(role), intervalUnit(l.interval))
}

func intervalUnit(d time.Duration) string {
	switch d {
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	case time.Second:
		return "second"
	default:
		return d.String()
	}
}
