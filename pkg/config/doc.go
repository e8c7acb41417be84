// Package config provides application configuration from environment
// variables.
//
// # Configuration Structure
//
// Server settings:
//
//	COACHDESK_HOST="0.0.0.0"
//	COACHDESK_PORT="8080"
//	COACHDESK_HEALTH_PORT="9090"
//	COACHDESK_READ_TIMEOUT="15s"
//	COACHDESK_WRITE_TIMEOUT="15s"
//	COACHDESK_SHUTDOWN_TIMEOUT="30s"
//	COACHDESK_ALLOWED_ORIGINS="https://app.example.com,https://admin.example.com"
//
// Database settings:
//
//	COACHDESK_POSTGRES_URL="postgres://localhost/coachdesk"
//	COACHDESK_POSTGRES_MAX_CONNS="25"
//
// Redis settings (empty URL disables distributed rate limiting):
//
//	COACHDESK_REDIS_URL="redis://localhost:6379"
//
// Auth settings:
//
//	COACHDESK_ROLE_CACHE_TTL="1m"
//
// Observability settings:
//
//	COACHDESK_LOG_LEVEL="info"        # debug, info, warn, error
//	COACHDESK_METRICS_ENABLED="true"
//	COACHDESK_OTEL_ENABLED="false"
//	COACHDESK_OTEL_ENDPOINT="localhost:4317"
//
// # Plan Overrides
//
// COACHDESK_PLAN_OVERRIDES may point at a YAML file adjusting plan
// limits and fair-use ceilings without a rebuild:
//
//	limits:
//	  standard:
//	    clients: 75
//	fair_use:
//	  premium:
//	    clients: 2000
//
// Overrides are applied once at boot, before any limiter serves
// traffic.
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.LoadPlanOverrides(); err != nil {
//		log.Fatal(err)
//	}
package config
