// Package observability exports park simulation metrics to Prometheus.
package observability
