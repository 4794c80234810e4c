package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalid means the signature does not verify against the shared secret.
	ErrInvalid = errors.New("signature invalid")
	// ErrExpired means the signature verified but its timestamp is outside the
	// validity window.
	ErrExpired = errors.New("signature expired")
)

// Signer produces and verifies timestamped HMAC-SHA256 signatures of the form
// base64url(value):unixSeconds:hex(mac). The system-of-record uses the same
// scheme for channel tokens and webhook signatures, so both sides only need
// to agree on SECRET_KEY.
type Signer struct {
	secret []byte
	clock  clockwork.Clock
}

func NewSigner(secret string, clock clockwork.Clock) *Signer {
	return &Signer{secret: []byte(secret), clock: clock}
}

// Sign returns a signed, timestamped representation of value.
func (s *Signer) Sign(value string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(value))
	ts := strconv.FormatInt(s.clock.Now().Unix(), 10)
	return encoded + ":" + ts + ":" + s.mac(encoded, ts)
}

// Unsign validates the signature and age of a signed value, returning the
// original value. The signature check is constant-time. Any structural
// problem is reported as ErrInvalid, a stale timestamp as ErrExpired.
func (s *Signer) Unsign(signed string, maxAge time.Duration) (string, error) {
	parts := strings.Split(signed, ":")
	if len(parts) != 3 {
		return "", ErrInvalid
	}
	encoded, ts, mac := parts[0], parts[1], parts[2]

	expected := s.mac(encoded, ts)
	if subtle.ConstantTimeCompare([]byte(mac), []byte(expected)) != 1 {
		return "", ErrInvalid
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrInvalid
	}
	if s.clock.Now().Sub(time.Unix(issued, 0)) > maxAge {
		return "", ErrExpired
	}

	value, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalid
	}
	return string(value), nil
}

func (s *Signer) mac(encoded, ts string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(encoded))
	h.Write([]byte(":"))
	h.Write([]byte(ts))
	return hex.EncodeToString(h.Sum(nil))
}
