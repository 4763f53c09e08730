// Package auth provides API key middleware for the HTTP API and WebSocket
// stream.
//
// APIKey(mode, header, key) wraps an http.Handler. When mode != "apikey" or
// key == "", every request passes through (local use with auth disabled).
// Otherwise a request whose header value is absent or wrong is rejected with
// 401 before it reaches the wrapped handler.
package auth
