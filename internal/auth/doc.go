// Package auth implements bearer-token authentication for the stationd
// diagnostics API.
//
// Tokens are HS256 JWTs signed with a shared secret from the device
// configuration. Scopes gate the control operations: "read" covers the
// status and event endpoints, "control" covers scan/connect/disconnect.
// When no secret is configured, auth is disabled for LAN-only bring-up.
package auth
