package signing

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("test-secret-key", clockwork.NewFakeClock())

	signed := signer.Sign("sprint-42")

	value, err := signer.Unsign(signed, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "sprint-42", value)
}

func TestSigner_ValueWithSeparator(t *testing.T) {
	signer := NewSigner("test-secret-key", clockwork.NewFakeClock())

	signed := signer.Sign("post:http://example.com/task/42:abc")

	value, err := signer.Unsign(signed, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "post:http://example.com/task/42:abc", value)
}

func TestSigner_TamperedValue(t *testing.T) {
	signer := NewSigner("test-secret-key", clockwork.NewFakeClock())

	signed := signer.Sign("sprint-42")
	parts := strings.SplitN(signed, ":", 2)
	tampered := "eHh4" + ":" + parts[1]

	_, err := signer.Unsign(tampered, time.Minute)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSigner_TamperedSignature(t *testing.T) {
	signer := NewSigner("test-secret-key", clockwork.NewFakeClock())

	signed := signer.Sign("sprint-42")
	tampered := signed[:len(signed)-1]
	if strings.HasSuffix(signed, "0") {
		tampered += "1"
	} else {
		tampered += "0"
	}

	_, err := signer.Unsign(tampered, time.Minute)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSigner_WrongSecret(t *testing.T) {
	clock := clockwork.NewFakeClock()
	signer := NewSigner("test-secret-key", clock)
	other := NewSigner("another-secret", clock)

	_, err := other.Unsign(signer.Sign("sprint-42"), time.Minute)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSigner_Garbage(t *testing.T) {
	signer := NewSigner("test-secret-key", clockwork.NewFakeClock())

	for _, signed := range []string{"", "abc", "a:b", "a:b:c:d"} {
		_, err := signer.Unsign(signed, time.Minute)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", signed)
	}
}

func TestSigner_ExpiryBoundary(t *testing.T) {
	clock := clockwork.NewFakeClock()
	signer := NewSigner("test-secret-key", clock)

	signed := signer.Sign("sprint-42")

	clock.Advance(time.Minute - time.Second)
	value, err := signer.Unsign(signed, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "sprint-42", value)

	clock.Advance(2 * time.Second)
	_, err = signer.Unsign(signed, time.Minute)
	assert.ErrorIs(t, err, ErrExpired)
}
