package signing

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// SignatureValidity is how long a webhook signature stays acceptable. Webhook
// calls are immediate machine-to-machine requests, so the window is tight.
const SignatureValidity = time.Minute

var (
	// ErrMissingSignature means the request carried no X-Signature header.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMismatch means the signature verified but was produced for a
	// different method, URL, or body than the request actually carried.
	ErrMismatch = errors.New("signature does not match request")
)

// WebhookVerifier checks the X-Signature value the system-of-record attaches
// to change notifications. The signed value is lower(method):url:bodyHash.
type WebhookVerifier struct {
	signer *Signer
}

func NewWebhookVerifier(signer *Signer) *WebhookVerifier {
	return &WebhookVerifier{signer: signer}
}

// BodyHash returns the hex SHA-256 digest of a request body. An absent body
// hashes as the zero-length payload.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Sign produces an X-Signature value for a request. The relay only verifies,
// but local producers and tests need to mint valid notifications.
func (v *WebhookVerifier) Sign(method, url, bodyHash string) string {
	return v.signer.Sign(canonical(method, url, bodyHash))
}

// Verify recomputes the canonical string from the received request and
// compares it, constant-time, against the signed value.
func (v *WebhookVerifier) Verify(signature, method, url, bodyHash string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	signed, err := v.signer.Unsign(signature, SignatureValidity)
	if err != nil {
		return err
	}
	expected := canonical(method, url, bodyHash)
	if subtle.ConstantTimeCompare([]byte(signed), []byte(expected)) != 1 {
		return ErrMismatch
	}
	return nil
}

func canonical(method, url, bodyHash string) string {
	return strings.ToLower(method) + ":" + url + ":" + bodyHash
}
