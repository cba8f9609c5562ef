// Package driver defines the southbound contract between the station
// manager and the vendor wireless stack: interface handles, the driver
// event bus, and the WiFi control primitives.
//
// The package contains no protocol or packet handling. Scanning,
// association and IP acquisition are performed by the vendor stack; this
// layer only names the operations and normalizes the vendor's error
// vocabulary to a small set of stable classes.
package driver
