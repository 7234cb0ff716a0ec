// Package telemetry provides the observability stack of conform: structured
// logging with zerolog, OpenTelemetry spans per run and per artifact, and
// Prometheus metrics.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.Textfile = "/var/lib/node_exporter/conform.prom"
//
//	tel, err := telemetry.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Logs go to stderr by default so that reports written to stdout stay
// machine-readable. The stdout trace exporter also writes to stderr.
//
// # Metrics
//
//	conform_verdicts_total{artifact,status}
//	conform_artifact_duration_seconds{artifact}
//	conform_runs_total{result}
//	conform_run_duration_seconds
//	conform_last_run_timestamp_seconds
//	conform_last_run_conformant
//
// One-shot runs write them to a node_exporter textfile; watch mode can also
// serve them over HTTP with Metrics.Serve.
package telemetry
