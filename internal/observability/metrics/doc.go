// Package metrics collects HTTP and action metrics for the API server and
// serves them to Prometheus scrapers.
package metrics
