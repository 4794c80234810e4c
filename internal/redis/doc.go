// Package redis implements the Redis-backed parts of the relay.
//
// Bridge is the message bus: publishes envelopes on per-channel topics and
// feeds its subscription back into the connection registry, which is what
// lets several relay processes share one broadcast domain. InstanceRegistry
// tracks the live relay fleet through heartbeats in a shared hash.
package redis
