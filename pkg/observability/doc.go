// Package observability provides structured logging, Prometheus metrics,
// health probes, OpenTelemetry tracing and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("email", email).Info("User created with email")
//
// Request handlers pull the request-scoped logger from the context:
//
//	observability.FromContext(r.Context()).Warn("Bot request blocked")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordPolicyDecision("user-rate-limit", "DENY", "RATE_LIMIT")
//	metrics.RecordAuthEvent("sign_in", "success")
//
// A PoolStatsCollector samples database and Redis pool statistics into
// gauges on a cron schedule.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(opsMux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:  true,
//		Endpoint: "otel-collector:4317",
//		Insecure: true,
//	}, logger)
package observability
