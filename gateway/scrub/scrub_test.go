package scrub_test

import (
	"encoding/base64"
	"testing"

	"github.com/fimlabs/paygate/gateway/scrub"
	"github.com/stretchr/testify/assert"
)

const cardNumber = "4111111111111111"

func TestScrubber_Secrets(t *testing.T) {
	s := scrub.New().Secret("sk_live_abc123")

	t.Run("redacts the plain value", func(t *testing.T) {
		out := s.Scrub("Authorization: sk_live_abc123")

		assert.NotContains(t, out, "sk_live_abc123")
		assert.Contains(t, out, scrub.Marker)
	})

	t.Run("redacts the base64 encoding", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("sk_live_abc123"))
		out := s.Scrub("key=" + encoded)

		assert.NotContains(t, out, encoded)
	})

	t.Run("ignores blank secrets", func(t *testing.T) {
		out := scrub.New().Secret("  ").Scrub("body stays intact")

		assert.Equal(t, "body stays intact", out)
	})
}

func TestScrubber_BasicAuth(t *testing.T) {
	s := scrub.New().BasicAuth("merchant", "hunter2")
	pair := base64.StdEncoding.EncodeToString([]byte("merchant:hunter2"))

	out := s.Scrub("Authorization: Basic " + pair + " password=hunter2")

	assert.NotContains(t, out, pair)
	assert.NotContains(t, out, "hunter2")
}

func TestScrubber_Fields(t *testing.T) {
	s := scrub.New().
		JSONField("number").
		JSONField("cvc").
		XMLElement("CVV").
		FormField("cvv")

	t.Run("json fields", func(t *testing.T) {
		out := s.Scrub(`{"number":"4111111111111111","cvc":"123","amount":100}`)

		assert.NotContains(t, out, "4111111111111111")
		assert.NotContains(t, out, `"cvc":"123"`)
		assert.Contains(t, out, `"amount":100`)
	})

	t.Run("blank cvc is still redacted", func(t *testing.T) {
		out := s.Scrub(`{"cvc":""}`)

		assert.Equal(t, `{"cvc":"`+scrub.Marker+`"}`, out)
	})

	t.Run("xml elements", func(t *testing.T) {
		out := s.Scrub("<Card><CVV>123</CVV></Card>")

		assert.Equal(t, "<Card><CVV>"+scrub.Marker+"</CVV></Card>", out)
	})

	t.Run("form fields", func(t *testing.T) {
		out := s.Scrub("amount=100&cvv=123&currency=USD")

		assert.Equal(t, "amount=100&cvv="+scrub.Marker+"&currency=USD", out)
	})
}

func TestScrubber_GroupedCardNumber(t *testing.T) {
	s := scrub.New().CardNumber(cardNumber)

	out := s.Scrub("PAN: 4111 1111 1111 1111 and 4111-1111-1111-1111")

	assert.NotContains(t, out, "4111 1111 1111 1111")
	assert.NotContains(t, out, "4111-1111-1111-1111")

	// Unregistered digit runs survive.
	kept := s.Scrub("order 1234 5678 9012 3456")
	assert.Contains(t, kept, "1234 5678 9012 3456")
}

func TestScrubber_Idempotent(t *testing.T) {
	s := scrub.New().
		Secret("sk_live_abc123").
		CardNumber(cardNumber).
		JSONField("cvc")

	transcript := `{"number":"` + cardNumber + `","cvc":"999"} key=sk_live_abc123`
	once := s.Scrub(transcript)
	twice := s.Scrub(once)

	assert.Equal(t, once, twice)
}
