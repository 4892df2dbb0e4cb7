package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/rfpcore"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Catalogue metrics
	VisibilityQueriesTotal metric.Int64Counter
	VisibleRows            metric.Int64Histogram
	CatalogMutationsTotal  metric.Int64Counter

	// Constraint metrics
	ConstraintViolationsTotal metric.Int64Counter

	// Role/group sync metrics
	RoleSyncsTotal metric.Int64Counter

	// Snapshot metrics
	FinalizationsTotal metric.Int64Counter
	FinalizeDuration   metric.Float64Histogram
	ArchivedSnapshots  metric.Int64Counter

	// Invite metrics
	InviteAcceptsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
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

	m.VisibilityQueriesTotal, _ = meter.Int64Counter(
		"rfpcore.catalog.visibility_queries.total",
		metric.WithDescription("Total number of tenant visibility queries"),
		metric.WithUnit("{query}"),
	)

	m.VisibleRows, _ = meter.Int64Histogram(
		"rfpcore.catalog.visible_rows",
		metric.WithDescription("Number of rows returned by a visibility query"),
		metric.WithUnit("{row}"),
	)

	m.CatalogMutationsTotal, _ = meter.Int64Counter(
		"rfpcore.catalog.mutations.total",
		metric.WithDescription("Total number of catalogue creates, deletes and block list edits"),
		metric.WithUnit("{mutation}"),
	)

	m.ConstraintViolationsTotal, _ = meter.Int64Counter(
		"rfpcore.constraints.violations.total",
		metric.WithDescription("Total number of rejected mutations by constraint"),
		metric.WithUnit("{violation}"),
	)

	m.RoleSyncsTotal, _ = meter.Int64Counter(
		"rfpcore.users.role_syncs.total",
		metric.WithDescription("Total number of role/group synchronizations by trigger"),
		metric.WithUnit("{sync}"),
	)

	m.FinalizationsTotal, _ = meter.Int64Counter(
		"rfpcore.rfps.finalizations.total",
		metric.WithDescription("Total number of proposals finalized"),
		metric.WithUnit("{rfp}"),
	)

	m.FinalizeDuration, _ = meter.Float64Histogram(
		"rfpcore.rfps.finalize.duration",
		metric.WithDescription("Duration of finalize transactions"),
		metric.WithUnit("ms"),
	)

	m.ArchivedSnapshots, _ = meter.Int64Counter(
		"rfpcore.rfps.archived.total",
		metric.WithDescription("Total number of finalized snapshots written to archives"),
		metric.WithUnit("{rfp}"),
	)

	m.InviteAcceptsTotal, _ = meter.Int64Counter(
		"rfpcore.invites.accepts.total",
		metric.WithDescription("Total number of invite acceptance attempts by result"),
		metric.WithUnit("{invite}"),
	)

	return m
}
