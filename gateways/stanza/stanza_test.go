package stanza_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateways/stanza"
	"github.com/fimlabs/paygate/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "sk_test_123"

func newGateway(t *testing.T) *stanza.Gateway {
	t.Helper()
	api := sandbox.NewAPI(sandbox.NewService(sandbox.NewMemStore()), apiKey, nil)
	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	return stanza.New(stanza.Config{
		APIKey:   apiKey,
		BaseURL:  server.URL,
		Timeout:  5 * time.Second,
		TestMode: true,
	}, nil)
}

func goodCard() gateway.CreditCard {
	return gateway.CreditCard{
		Number:            "4111111111111111",
		Month:             12,
		Year:              time.Now().Year() + 2,
		VerificationValue: "123",
		HolderName:        "Longbob Longsen",
	}
}

func money(t *testing.T, amount int64) gateway.Money {
	t.Helper()
	m, err := gateway.NewMoney(amount, "USD")
	require.NoError(t, err)
	return m
}

func TestPurchase(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("successful purchase", func(t *testing.T) {
		resp, err := g.Purchase(ctx, money(t, 100), goodCard(), gateway.Options{OrderID: "order-1"})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Authorization)
		assert.True(t, resp.TestMode)
		status, _ := resp.Params.Get("status")
		assert.Equal(t, "captured", status)
	})

	t.Run("declined card", func(t *testing.T) {
		card := goodCard()
		card.Number = sandbox.CardDeclined

		resp, err := g.Purchase(ctx, money(t, 100), card, gateway.Options{})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Message)
		assert.Equal(t, gateway.ErrCardDeclined, resp.ErrorCode)
	})

	t.Run("expired card", func(t *testing.T) {
		card := goodCard()
		card.Number = sandbox.CardExpired

		resp, err := g.Purchase(ctx, money(t, 100), card, gateway.Options{})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrExpiredCard, resp.ErrorCode)
	})

	t.Run("incorrect number", func(t *testing.T) {
		card := goodCard()
		card.Number = "4242424242424241"

		resp, err := g.Purchase(ctx, money(t, 100), card, gateway.Options{})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrIncorrectNumber, resp.ErrorCode)
	})
}

func TestAuthorizeAndCapture(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("full capture", func(t *testing.T) {
		auth, err := g.Authorize(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		require.True(t, auth.Success)
		require.NotEmpty(t, auth.Authorization)

		capture, err := g.Capture(ctx, money(t, 100), auth.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.True(t, capture.Success)
	})

	t.Run("partial capture settles the smaller amount", func(t *testing.T) {
		auth, err := g.Authorize(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		require.True(t, auth.Success)

		capture, err := g.Capture(ctx, money(t, 99), auth.Authorization, gateway.Options{})
		require.NoError(t, err)
		require.True(t, capture.Success)
		captured, _ := capture.Params.Get("captured_amount")
		assert.Equal(t, "99", captured)
	})

	t.Run("capture above the authorized amount fails", func(t *testing.T) {
		auth, err := g.Authorize(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)

		capture, err := g.Capture(ctx, money(t, 101), auth.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, capture.Success)
		assert.Equal(t, gateway.ErrProcessingError, capture.ErrorCode)
	})
}

func TestVoid(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("voids an authorization once", func(t *testing.T) {
		auth, err := g.Authorize(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		require.True(t, auth.Success)

		void, err := g.Void(ctx, auth.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.True(t, void.Success)

		again, err := g.Void(ctx, auth.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, again.Success)
		assert.NotEmpty(t, again.Message)
	})

	t.Run("void after settlement fails", func(t *testing.T) {
		purchase, err := g.Purchase(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		require.True(t, purchase.Success)

		void, err := g.Void(ctx, purchase.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, void.Success)
	})
}

func TestRefund(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("partial refunds until the balance runs out", func(t *testing.T) {
		purchase, err := g.Purchase(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		require.True(t, purchase.Success)

		first, err := g.Refund(ctx, money(t, 60), purchase.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.True(t, first.Success)

		second, err := g.Refund(ctx, money(t, 40), purchase.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.True(t, second.Success)

		third, err := g.Refund(ctx, money(t, 1), purchase.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, third.Success)
		assert.NotEmpty(t, third.Message)
	})

	t.Run("refund above the captured amount fails, never clamps", func(t *testing.T) {
		purchase, err := g.Purchase(ctx, money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)

		refund, err := g.Refund(ctx, money(t, 101), purchase.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, refund.Success)
		code, _ := refund.Params.Get("provider_code")
		assert.Equal(t, "amount_too_large", code)
	})
}

func TestCredit(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("credit to a card", func(t *testing.T) {
		resp, err := g.Credit(ctx, money(t, 500), goodCard(), gateway.Options{})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Authorization)
	})

	t.Run("declined card cannot be credited", func(t *testing.T) {
		card := goodCard()
		card.Number = sandbox.CardDeclined

		resp, err := g.Credit(ctx, money(t, 500), card, gateway.Options{})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrCardDeclined, resp.ErrorCode)
	})
}

func TestStoreAndUnstore(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	store, err := g.Store(ctx, goodCard(), gateway.Options{Email: "joe@example.com"})
	require.NoError(t, err)
	require.True(t, store.Success)
	require.NotEmpty(t, store.Authorization)

	token := gateway.Token{Value: store.Authorization}

	t.Run("charging the token works like the raw card", func(t *testing.T) {
		resp, err := g.Purchase(ctx, money(t, 100), token, gateway.Options{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		last4, _ := resp.Params.Get("last4")
		assert.Equal(t, "1111", last4)
	})

	t.Run("unstore invalidates the token", func(t *testing.T) {
		unstore, err := g.Unstore(ctx, store.Authorization, gateway.Options{})
		require.NoError(t, err)
		assert.True(t, unstore.Success)

		resp, err := g.Purchase(ctx, money(t, 100), token, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
	})
}

func TestVerify(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("verifies a good card", func(t *testing.T) {
		resp, err := g.Verify(ctx, goodCard(), gateway.Options{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("rejects a declined card", func(t *testing.T) {
		card := goodCard()
		card.Number = sandbox.CardDeclined

		resp, err := g.Verify(ctx, card, gateway.Options{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrCardDeclined, resp.ErrorCode)
	})
}

func TestInvalidCredentials(t *testing.T) {
	api := sandbox.NewAPI(sandbox.NewService(sandbox.NewMemStore()), apiKey, nil)
	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	t.Run("wrong key fails on the first call", func(t *testing.T) {
		g := stanza.New(stanza.Config{APIKey: "sk_wrong", BaseURL: server.URL}, nil)

		resp, err := g.Purchase(context.Background(), money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrConfig, resp.ErrorCode)
	})

	t.Run("missing key never reaches the wire", func(t *testing.T) {
		g := stanza.New(stanza.Config{BaseURL: server.URL}, nil)

		resp, err := g.Purchase(context.Background(), money(t, 100), goodCard(), gateway.Options{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrConfig, resp.ErrorCode)
	})
}

func TestScrub(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	card := goodCard()
	_, err := g.Purchase(ctx, money(t, 100), card, gateway.Options{})
	require.NoError(t, err)

	transcript := g.Transcript()
	require.Contains(t, transcript, card.Number)

	scrubbed := g.Scrub(transcript)
	assert.NotContains(t, scrubbed, card.Number)
	assert.NotContains(t, scrubbed, `"cvc":"`+card.VerificationValue+`"`)
	assert.Contains(t, scrubbed, `"cvc":"[FILTERED]"`)
	assert.Equal(t, scrubbed, g.Scrub(scrubbed))
}
