// Package audit implements the append-only action log for stationd.
//
// Every operation invoked through the diagnostics surface is recorded as
// one JSONL entry with a correlation id, the action, its outcome and its
// latency.
package audit
