/*
Package metrics provides Prometheus instrumentation for Omzet.

The metrics package defines the Prometheus collectors for record inventory,
assignment activity, reservation lifecycle, deposit classification, report
builds, repair runs, scheduled jobs, and the HTTP API. All collectors are
registered at init and exported under the omzet_ prefix.

# Core Components

Gauges:
  - omzet_records_total{collection,status}: record inventory
  - omzet_reservations_total{status}: reservation inventory
  - omzet_deposits_total: deposit count

Counters:
  - omzet_records_assigned_total, omzet_assign_shortfalls_total
  - omzet_reservations_expired_total
  - omzet_resolver_mutations_total{action}
  - omzet_deposits_written_total{operation}
  - omzet_classification_flips_total
  - omzet_invariant_violations_total
  - omzet_repair_runs_total{outcome}
  - omzet_scheduled_job_runs_total{job,outcome}
  - omzet_api_requests_total{method,status}

Histograms:
  - omzet_report_build_duration_seconds
  - omzet_api_request_duration_seconds{method}

Collector:
  - Polls the store on an interval and refreshes the inventory gauges
  - Started and stopped by the manager

# Usage

	metrics.RecordsAssigned.Add(float64(len(assigned)))
	metrics.ScheduledJobRuns.WithLabelValues("sweep", "success").Inc()

	mux.Handle("GET /metrics", metrics.Handler())

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()
*/
package metrics
