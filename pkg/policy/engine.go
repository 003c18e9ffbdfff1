package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/observability"
)

// Rule names used in decisions and metrics for the non-window rules
const (
	RuleBot    = "bot"
	RuleShield = "shield"
)

// Oracle evaluates a request against the configured rules plus any
// per-request windows
type Oracle interface {
	Protect(ctx context.Context, req Request, windows ...Window) (Decision, error)
}

// Recorder receives one observation per rule outcome
type Recorder interface {
	RecordPolicyDecision(rule, conclusion, reason string)
}

// EngineConfig configures an Engine
type EngineConfig struct {
	// Key is the HMAC key for client fingerprints
	Key []byte
	// Prefix namespaces the window store keys. Defaults to "policy".
	Prefix      string
	BotMode     Mode
	ShieldMode  Mode
	AllowedBots []BotCategory
	// Windows are evaluated on every request before the per-request windows
	Windows  []Window
	Logger   *observability.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Engine is the in-process Oracle
type Engine struct {
	key        []byte
	prefix     string
	botMode    Mode
	shieldMode Mode
	bots       *BotDetector
	shield     *Shield
	windows    []Window
	store      WindowStore
	logger     *observability.Logger
	recorder   Recorder
	now        func() time.Time
}

var _ Oracle = (*Engine)(nil)

// NewEngine creates an engine backed by store
func NewEngine(cfg EngineConfig, store WindowStore) *Engine {
	if cfg.Prefix == "" {
		cfg.Prefix = "policy"
	}
	if cfg.BotMode == "" {
		cfg.BotMode = ModeLive
	}
	if cfg.ShieldMode == "" {
		cfg.ShieldMode = ModeLive
	}
	if cfg.AllowedBots == nil {
		cfg.AllowedBots = DefaultAllowedBots
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		key:        cfg.Key,
		prefix:     cfg.Prefix,
		botMode:    cfg.BotMode,
		shieldMode: cfg.ShieldMode,
		bots:       NewBotDetector(cfg.AllowedBots),
		shield:     NewShield(),
		windows:    append([]Window(nil), cfg.Windows...),
		store:      store,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
	}
}

// Protect runs bot, shield and window rules in that order and returns the
// first live denial. Store failures are wrapped in ErrUpstream.
func (e *Engine) Protect(ctx context.Context, req Request, windows ...Window) (Decision, error) {
	now := e.now()
	log := e.logger.WithFields(map[string]interface{}{
		"path":   req.Path,
		"method": req.Method,
	})

	decision := Decision{Conclusion: Allow, Reason: ReasonNone}

	category, automated := e.bots.Check(req.UserAgent)
	decision.Bot = category
	if automated {
		if e.botMode == ModeLive {
			e.record(RuleBot, Deny, ReasonBot)
			return Decision{Conclusion: Deny, Reason: ReasonBot, Rule: RuleBot, Bot: category}, nil
		}
		log.WithField("category", string(category)).Info("dry run: bot rule would deny")
		e.recordDryRun(RuleBot, ReasonBot)
	}

	if threat, matched := e.shield.Inspect(req); matched {
		if e.shieldMode == ModeLive {
			e.record(RuleShield, Deny, ReasonShield)
			return Decision{Conclusion: Deny, Reason: ReasonShield, Rule: RuleShield, Threat: threat, Bot: category}, nil
		}
		log.WithField("threat", threat).Info("dry run: shield rule would deny")
		e.recordDryRun(RuleShield, ReasonShield)
		decision.Threat = threat
	}

	fingerprint := Fingerprint(e.key, req.IP)
	tightest := -1
	for _, w := range append(append([]Window(nil), e.windows...), windows...) {
		if err := w.Validate(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		key := fmt.Sprintf("%s:%s:%s", e.prefix, w.Name, fingerprint)
		result, err := e.store.Hit(ctx, key, w, now)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: window %s: %v", ErrUpstream, w.Name, err)
		}

		if !result.Allowed {
			if w.Mode != ModeDryRun {
				e.record(w.Name, Deny, ReasonRateLimit)
				return Decision{
					Conclusion: Deny,
					Reason:     ReasonRateLimit,
					Rule:       w.Name,
					Limit:      w.Max,
					Remaining:  0,
					Reset:      result.Reset,
					Bot:        category,
				}, nil
			}
			log.WithField("window", w.Name).Info("dry run: rate limit would deny")
			e.recordDryRun(w.Name, ReasonRateLimit)
		}

		if tightest < 0 || result.Remaining < tightest {
			tightest = result.Remaining
			decision.Rule = w.Name
			decision.Limit = w.Max
			decision.Remaining = result.Remaining
			decision.Reset = result.Reset
		}
	}

	e.record(decision.Rule, Allow, ReasonNone)
	return decision, nil
}

func (e *Engine) record(rule string, conclusion Conclusion, reason DenialReason) {
	if e.recorder == nil {
		return
	}
	if rule == "" {
		rule = "none"
	}
	e.recorder.RecordPolicyDecision(rule, conclusion.String(), reason.String())
}

func (e *Engine) recordDryRun(rule string, reason DenialReason) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordPolicyDecision(rule, string(ModeDryRun), reason.String())
}
