package gateway_test

import (
	"testing"

	"github.com/fimlabs/paygate/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationRoundTrip(t *testing.T) {
	t.Run("round-trips plain identifiers", func(t *testing.T) {
		encoded := gateway.EncodeAuthorization("tx-123", "A1B2")

		parts, err := gateway.DecodeAuthorization(encoded, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"tx-123", "A1B2"}, parts)
	})

	t.Run("round-trips identifiers containing the delimiter", func(t *testing.T) {
		encoded := gateway.EncodeAuthorization("tx|123", "code|with|pipes")

		parts, err := gateway.DecodeAuthorization(encoded, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"tx|123", "code|with|pipes"}, parts)
	})

	t.Run("round-trips empty parts", func(t *testing.T) {
		encoded := gateway.EncodeAuthorization("tx-123", "")

		parts, err := gateway.DecodeAuthorization(encoded, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"tx-123", ""}, parts)
	})

	t.Run("rejects wrong part count", func(t *testing.T) {
		encoded := gateway.EncodeAuthorization("a", "b", "c")

		_, err := gateway.DecodeAuthorization(encoded, 2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2 parts")
	})

	t.Run("rejects empty authorization", func(t *testing.T) {
		_, err := gateway.DecodeAuthorization("", 1)
		assert.Error(t, err)
	})
}

func TestParams_InsertionOrder(t *testing.T) {
	p := gateway.NewParams()
	p.Set("zulu", "1")
	p.Set("alpha", "2")
	p.Set("mike", "3")

	assert.Equal(t, []string{"zulu", "alpha", "mike"}, p.Keys())

	// Replacing keeps the original position.
	p.Set("alpha", "4")
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, p.Keys())
	v, ok := p.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "4", v)
	assert.Equal(t, 3, p.Len())
}
