// Package telemetry implements the lifecycle event hub for stationd.
//
// The hub fans station lifecycle events out to subscribers (the
// diagnostics SSE endpoint, the display loop) and retains a bounded ring
// of recent events for late joiners. Publishing never blocks.
package telemetry
