// Package station owns the station-mode network interface lifecycle and
// the connection-coordination protocol.
//
// The Manager serializes all mutating operations through a single
// acquisition-bounded lock, bridges the driver's asynchronous events into
// sticky signal flags, and runs a bounded-retry, deadline-aware connect
// loop. Teardown is resource-keeping by default: a co-resident subsystem
// may share the interface handle and the event handler registrations, so
// the manager only releases what it owns, and only when explicitly asked
// to via Release.
package station
