// Package diag exposes the stationd diagnostics API over HTTP.
//
// The surface is a thin northbound wrapper over the station manager:
// status snapshot, scan, connect/disconnect and a server-sent event
// stream of lifecycle events. All responses use one JSON envelope with a
// correlation id; control routes are gated by bearer-token scopes when
// auth is configured.
package diag
