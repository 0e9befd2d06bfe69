package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fimlabs/paygate/gateway/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Do(t *testing.T) {
	t.Run("returns status and body for non-2xx replies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":{"code":"card_declined"}}`))
		}))
		defer server.Close()

		client := transport.New(5 * time.Second)
		reply, err := client.Do(context.Background(), transport.Request{
			Method:      http.MethodPost,
			URL:         server.URL,
			Body:        []byte(`{"amount":100}`),
			ContentType: "application/json",
			Headers:     map[string]string{"Idempotency-Key": "idem-1"},
		})

		require.NoError(t, err)
		assert.Equal(t, http.StatusPaymentRequired, reply.StatusCode)
		assert.Contains(t, string(reply.Body), "card_declined")
	})

	t.Run("connection failure surfaces as a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := transport.New(time.Second)
		_, err := client.Do(context.Background(), transport.Request{
			Method: http.MethodPost,
			URL:    server.URL,
		})

		require.Error(t, err)
		_, ok := transport.IsTransportError(err)
		assert.True(t, ok)
	})

	t.Run("records the wire transcript", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))
		defer server.Close()

		recorder := &transport.BufferRecorder{}
		client := transport.New(5*time.Second, transport.WithRecorder(recorder))
		_, err := client.Do(context.Background(), transport.Request{
			Method: http.MethodPost,
			URL:    server.URL,
			Body:   []byte("ping"),
		})

		require.NoError(t, err)
		transcript := recorder.Transcript()
		assert.Contains(t, transcript, "ping")
		assert.Contains(t, transcript, "pong")
		assert.Contains(t, transcript, server.URL)

		recorder.Reset()
		assert.Empty(t, recorder.Transcript())
	})
}
