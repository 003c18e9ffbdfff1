// Package policy decides whether an inbound request may proceed.
//
// # Overview
//
// The Oracle interface is the seam between the HTTP security middleware and
// whatever evaluates requests. Engine is the in-process implementation. It
// runs three kinds of rules in a fixed order and stops at the first denial:
//
//  1. Bot detection: the User-Agent is classified into a category and
//     automated categories that are not on the allow list are denied.
//  2. Shield: the decoded path and query are matched against SQL injection,
//     XSS, path traversal and command injection signatures.
//  3. Sliding windows: the configured base windows followed by the windows
//     passed in with the request (the caller's role budget).
//
// Every rule has a Mode. A DRY_RUN rule is evaluated, logged and counted but
// never blocks.
//
// # Window Stores
//
// Window counters are keyed by "<prefix>:<window>:<fingerprint>" where the
// fingerprint is a keyed HMAC of the client IP, so raw addresses never reach
// Redis. RedisWindowStore keeps a sorted set of hit timestamps per key and is
// shared across instances. MemoryWindowStore keeps the same log in an
// expirable LRU per window and is used when Redis is not configured.
//
// A store failure is reported as ErrUpstream. Callers must treat it as a
// denial.
//
// # Usage
//
//	engine := policy.NewEngine(policy.EngineConfig{
//		Key:     []byte(cfg.PolicyKey),
//		Windows: []policy.Window{{Name: "burst", Max: 5, Interval: 2 * time.Second, Mode: policy.ModeLive}},
//	}, policy.NewMemoryWindowStore(10000))
//
//	decision, err := engine.Protect(ctx, policy.RequestFromHTTP(r, clientIP), policy.Window{
//		Name: "user-rate-limit", Max: 10, Interval: time.Minute, Mode: policy.ModeLive,
//	})
package policy
