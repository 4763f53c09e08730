// Package store holds the most recent county analysis in memory so the HTTP
// API, the WebSocket hub and the alert engine all read a consistent view while
// the data file is reloaded underneath them.
package store
