// Package instrumentation wires OpenTelemetry metrics and tracing for the bot.
//
// Metrics exported:
//
//	http_requests_total, http_request_duration_seconds    webhook traffic
//	bot_events_total, bot_event_duration_seconds          events by type, intent and status
//	bot_replies_total                                     reply delivery by status
//	store_operations_total, store_operation_duration_seconds
//	                                                      task store round trips by backend
//
// Usage:
//
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	defer provider.Shutdown(ctx)
//	st := store.Instrument(backend, "sheets", provider.Metrics())
package instrumentation
