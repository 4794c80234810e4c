// Package relay implements the broadcast core: the connection registry, the
// per-connection write pump, and the router that drives connect, message,
// disconnect, and webhook flows.
//
// Every message, even one destined only for peers on the same process, goes
// out through the bus and comes back through the bus subscription. Echo to
// the originating connection is suppressed at delivery time by sender id, so
// one delivery code path serves any number of relay processes.
package relay
