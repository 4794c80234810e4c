// Package server exposes the relay over HTTP: the websocket endpoint,
// the signed webhook endpoint, health checks, and Prometheus metrics.
package server
