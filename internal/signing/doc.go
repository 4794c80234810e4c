// Package signing implements the shared-secret credentials used by the relay.
//
// A timestamped HMAC Signer underpins both credential kinds: ChannelTokens
// (30 minute tokens binding a websocket client to one channel) and
// WebhookVerifier (1 minute signatures over method:url:sha256(body) for
// change notifications from the system-of-record).
package signing
