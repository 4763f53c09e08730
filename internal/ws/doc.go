// Package ws streams the current county analysis to WebSocket clients.
//
// New(store, alerts, interval) creates a Hub. Hub.Run(ctx) broadcasts on
// every tick and whenever Notify is called after a reload, until ctx is
// cancelled. Hub.ServeHTTP upgrades a connection and sends the current
// snapshot straight away. Nothing is sent while no data is loaded.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The upgrader accepts all origins; the hub is mounted at /ws/stream.
package ws
