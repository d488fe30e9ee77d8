package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyHMACSHA256(t *testing.T) {
	secret := []byte("whsec_test")
	payload := []byte(`{"event":"payment.completed"}`)

	signature := SignHMACSHA256(secret, payload)

	assert.True(t, VerifyHMACSHA256(secret, payload, signature))
	assert.False(t, VerifyHMACSHA256([]byte("other"), payload, signature))
	assert.False(t, VerifyHMACSHA256(secret, []byte("tampered"), signature))
	assert.False(t, VerifyHMACSHA256(secret, payload, "not-hex!"))
	assert.False(t, VerifyHMACSHA256(secret, payload, ""))
}
