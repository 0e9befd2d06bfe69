package gateway_test

import (
	"context"
	"testing"

	"github.com/fimlabs/paygate/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway records verb calls so the composite Verify flow can be
// observed without a wire protocol.
type stubGateway struct {
	gateway.Gateway

	authResponse *gateway.Response
	voidResponse *gateway.Response
	authorized   []gateway.Money
	voided       []string
}

func (s *stubGateway) Authorize(_ context.Context, amount gateway.Money, _ gateway.Instrument, _ gateway.Options) (*gateway.Response, error) {
	s.authorized = append(s.authorized, amount)
	return s.authResponse, nil
}

func (s *stubGateway) Void(_ context.Context, authorization string, _ gateway.Options) (*gateway.Response, error) {
	s.voided = append(s.voided, authorization)
	return s.voidResponse, nil
}

func TestVerifyByAuthVoid(t *testing.T) {
	t.Run("authorizes a minimal amount then voids it", func(t *testing.T) {
		auth := gateway.NewResponse(true, "Approved")
		auth.Authorization = "tx-1"
		stub := &stubGateway{
			authResponse: auth,
			voidResponse: gateway.NewResponse(true, "Voided"),
		}

		resp, err := gateway.VerifyByAuthVoid(context.Background(), stub, validCard(), gateway.Options{Currency: "EUR"})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		require.Len(t, stub.authorized, 1)
		assert.Equal(t, gateway.VerifyAmount, stub.authorized[0].Amount)
		assert.Equal(t, "EUR", stub.authorized[0].Currency)
		assert.Equal(t, []string{"tx-1"}, stub.voided)

		require.NotNil(t, resp.Reversal)
		assert.True(t, resp.Reversal.Success)
	})

	t.Run("declined authorize skips the void", func(t *testing.T) {
		stub := &stubGateway{
			authResponse: gateway.Failure("Declined", gateway.ErrCardDeclined),
		}

		resp, err := gateway.VerifyByAuthVoid(context.Background(), stub, validCard(), gateway.Options{})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrCardDeclined, resp.ErrorCode)
		assert.Empty(t, stub.voided)
		assert.Nil(t, resp.Reversal)
	})

	t.Run("defaults the currency", func(t *testing.T) {
		auth := gateway.NewResponse(true, "Approved")
		auth.Authorization = "tx-2"
		stub := &stubGateway{
			authResponse: auth,
			voidResponse: gateway.NewResponse(true, "Voided"),
		}

		_, err := gateway.VerifyByAuthVoid(context.Background(), stub, validCard(), gateway.Options{})

		require.NoError(t, err)
		assert.Equal(t, "USD", stub.authorized[0].Currency)
	})
}
