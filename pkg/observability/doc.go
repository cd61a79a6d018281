/*
Package observability exports ledger activity as Prometheus metrics.

Metrics are fed from domain.LifecycleHooks, so any engine configured with
Metrics.Hooks() reports operations without further wiring.
*/
package observability
