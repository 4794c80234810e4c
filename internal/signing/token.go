package signing

import "time"

// TokenValidity is how long a channel token grants access after issuance.
const TokenValidity = 30 * time.Minute

// ChannelTokens issues and verifies the short-lived tokens that authorize a
// websocket client to join exactly one channel. Tokens are self-expiring, so
// no revocation state is kept.
type ChannelTokens struct {
	signer *Signer
}

func NewChannelTokens(signer *Signer) *ChannelTokens {
	return &ChannelTokens{signer: signer}
}

// Issue returns a token granting access to channel for TokenValidity.
func (t *ChannelTokens) Issue(channel string) string {
	return t.signer.Sign(channel)
}

// Verify returns the channel a token grants access to.
func (t *ChannelTokens) Verify(token string) (string, error) {
	return t.signer.Unsign(token, TokenValidity)
}
