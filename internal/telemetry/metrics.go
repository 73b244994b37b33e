package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/onboard"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session metrics
	SessionDispatchTotal      metric.Int64Counter
	SessionPersistErrorsTotal metric.Int64Counter
	SessionInvalidatedTotal   metric.Int64Counter

	// Tenant metrics
	TenantFetchDuration     metric.Float64Histogram
	TenantFetchErrorsTotal  metric.Int64Counter
	RoleFetchFailuresTotal  metric.Int64Counter
	InvalidTenantParamTotal metric.Int64Counter

	// Basic data metrics
	BasicDataFetchFailuresTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Before Init has run the global provider is a no-op, so callers never need to check for nil.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.SessionDispatchTotal, _ = meter.Int64Counter(
		"onboard.session.dispatch.total",
		metric.WithDescription("Total number of session reconciliations"),
		metric.WithUnit("{dispatch}"),
	)

	m.SessionPersistErrorsTotal, _ = meter.Int64Counter(
		"onboard.session.persist.errors.total",
		metric.WithDescription("Total number of failed session cache writes"),
		metric.WithUnit("{error}"),
	)

	m.SessionInvalidatedTotal, _ = meter.Int64Counter(
		"onboard.session.invalidated.total",
		metric.WithDescription("Total number of sessions cleared because of a token mismatch"),
		metric.WithUnit("{session}"),
	)

	m.TenantFetchDuration, _ = meter.Float64Histogram(
		"onboard.tenants.fetch.duration",
		metric.WithDescription("Duration of loading tenants and their roles"),
		metric.WithUnit("ms"),
	)

	m.TenantFetchErrorsTotal, _ = meter.Int64Counter(
		"onboard.tenants.fetch.errors.total",
		metric.WithDescription("Total number of failed tenant list fetches"),
		metric.WithUnit("{error}"),
	)

	m.RoleFetchFailuresTotal, _ = meter.Int64Counter(
		"onboard.tenants.roles.failures.total",
		metric.WithDescription("Total number of per-tenant role fetches that failed or timed out"),
		metric.WithUnit("{error}"),
	)

	m.InvalidTenantParamTotal, _ = meter.Int64Counter(
		"onboard.tenants.invalid_param.total",
		metric.WithDescription("Total number of tenantid parameters that matched no tenant"),
		metric.WithUnit("{error}"),
	)

	m.BasicDataFetchFailuresTotal, _ = meter.Int64Counter(
		"onboard.basicdata.failures.total",
		metric.WithDescription("Total number of basic data groups that failed to load"),
		metric.WithUnit("{error}"),
	)

	return m
}
