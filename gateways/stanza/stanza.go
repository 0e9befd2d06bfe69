// Package stanza implements the gateway contract for the Stanza JSON REST
// API. One charge object moves through authorized/captured/voided states;
// refunds are child objects of a charge; customers hold stored cards.
package stanza

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateway/scrub"
	"github.com/fimlabs/paygate/gateway/transport"
)

const defaultBaseURL = "https://api.stanza.test"

// Config carries the adapter credentials and transport settings. Credentials
// are validated lazily on the first call, not at construction.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	TestMode bool

	// MaxRetries > 1 enables transport-level retry for idempotent requests.
	MaxRetries int
	RetryDelay time.Duration
}

type Gateway struct {
	cfg      Config
	client   transport.Client
	recorder *transport.BufferRecorder
	scrub    *scrub.Scrubber
}

var _ gateway.Gateway = (*Gateway)(nil)

// New builds a Stanza adapter. Pass a transport.Client to share a transport
// or wrap it with retry; nil gets a plain transport with the configured
// timeout.
func New(cfg Config, client transport.Client) *Gateway {
	g := &Gateway{cfg: cfg, recorder: &transport.BufferRecorder{}}
	if cfg.BaseURL == "" {
		g.cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		g.cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = transport.New(g.cfg.Timeout, transport.WithRecorder(g.recorder))
		if cfg.MaxRetries > 1 {
			client = transport.NewRetry(client, cfg.RetryDelay, cfg.MaxRetries)
		}
	}
	g.client = client
	g.scrub = g.scrubber()
	return g
}

// Transcript returns the raw wire transcript captured so far. Scrub before
// logging.
func (g *Gateway) Transcript() string {
	return g.recorder.Transcript()
}

func (g *Gateway) Purchase(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.charge(ctx, amount, instrument, opts, true)
}

func (g *Gateway) Authorize(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.charge(ctx, amount, instrument, opts, false)
}

func (g *Gateway) charge(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options, capture bool) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	req := chargeRequest{
		Amount:      amount.Amount,
		Currency:    amount.Currency,
		Capture:     capture,
		OrderID:     opts.OrderID,
		Description: opts.Description,
		Email:       opts.Email,
		IP:          opts.IP,
		Metadata:    opts.Extra,
	}
	if err := req.setInstrument(instrument); err != nil {
		return gateway.Failure(err.Error(), gateway.ErrProcessingError), nil
	}
	if addr := opts.BillingAddress; addr != nil {
		req.BillingZip = addr.Zip
		req.BillingCountry = addr.Country
	}
	return g.call(ctx, http.MethodPost, "/v1/charges", req, opts.IdempotencyKey)
}

func (g *Gateway) Capture(ctx context.Context, amount gateway.Money, authorization string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	path := fmt.Sprintf("/v1/charges/%s/capture", authorization)
	return g.call(ctx, http.MethodPost, path, amountRequest{Amount: amount.Amount}, opts.IdempotencyKey)
}

func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	path := fmt.Sprintf("/v1/charges/%s/void", authorization)
	return g.call(ctx, http.MethodPost, path, nil, opts.IdempotencyKey)
}

func (g *Gateway) Refund(ctx context.Context, amount gateway.Money, authorization string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	path := fmt.Sprintf("/v1/charges/%s/refunds", authorization)
	return g.call(ctx, http.MethodPost, path, amountRequest{Amount: amount.Amount}, opts.IdempotencyKey)
}

// Credit pushes funds to a card with no originating charge.
func (g *Gateway) Credit(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	req := chargeRequest{
		Amount:      amount.Amount,
		Currency:    amount.Currency,
		OrderID:     opts.OrderID,
		Description: opts.Description,
		Metadata:    opts.Extra,
	}
	if err := req.setInstrument(instrument); err != nil {
		return gateway.Failure(err.Error(), gateway.ErrProcessingError), nil
	}
	return g.call(ctx, http.MethodPost, "/v1/credits", req, opts.IdempotencyKey)
}

func (g *Gateway) Store(ctx context.Context, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	card, ok := instrument.(gateway.CreditCard)
	if !ok {
		return gateway.Failure("stanza can only store credit cards", gateway.ErrProcessingError), nil
	}
	req := customerRequest{
		Card:  newCardPayload(card),
		Email: opts.Email,
	}
	return g.call(ctx, http.MethodPost, "/v1/customers", req, opts.IdempotencyKey)
}

func (g *Gateway) Unstore(ctx context.Context, token string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	path := fmt.Sprintf("/v1/customers/%s", token)
	return g.call(ctx, http.MethodDelete, path, nil, "")
}

// Verify uses Stanza's native zero-amount verification instead of the
// authorize-and-void composite.
func (g *Gateway) Verify(ctx context.Context, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	card, ok := instrument.(gateway.CreditCard)
	if !ok {
		return gateway.VerifyByAuthVoid(ctx, g, instrument, opts)
	}
	req := verificationRequest{Card: newCardPayload(card)}
	return g.call(ctx, http.MethodPost, "/v1/verifications", req, "")
}

func (g *Gateway) Scrub(transcript string) string {
	return g.scrub.Scrub(transcript)
}

func (g *Gateway) checkCredentials() *gateway.Response {
	if g.cfg.APIKey == "" {
		return gateway.Failure("missing stanza api key", gateway.ErrConfig)
	}
	return nil
}

// call performs one wire exchange and normalizes whatever comes back.
// Non-2xx replies with a parseable error envelope become failure responses;
// replies the codec cannot interpret surface as errors.
func (g *Gateway) call(ctx context.Context, method, path string, body any, idempotencyKey string) (*gateway.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshalling request: %w", err)
		}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + g.cfg.APIKey,
		"Accept":        "application/json",
	}
	idempotent := method == http.MethodGet || method == http.MethodDelete
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
		idempotent = true
	}

	reply, err := g.client.Do(ctx, transport.Request{
		Method:      method,
		URL:         g.cfg.BaseURL + path,
		Body:        payload,
		ContentType: "application/json",
		Headers:     headers,
		Idempotent:  idempotent,
	})
	if err != nil {
		return nil, err
	}
	return g.parse(reply)
}
