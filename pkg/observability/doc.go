/*
Package observability binds engine lifecycle hooks to metrics and structured logs.

Both Metrics.Hooks and LoggingHooks return domain.LifecycleHooks, so they can
be merged and passed to tendril.WithLifecycleHooks together.
*/
package observability
