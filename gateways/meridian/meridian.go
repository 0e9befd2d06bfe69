// Package meridian implements the gateway contract for Meridian's XML POST
// protocol. Every verb is one XML document against a single endpoint;
// chained operations need both the transaction id and the approval code from
// the original reply, so the two travel together inside the opaque
// authorization string.
package meridian

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateway/scrub"
	"github.com/fimlabs/paygate/gateway/transport"
)

const defaultEndpoint = "https://secure.meridianpay.test/exec"

type Config struct {
	Login    string
	Password string
	Endpoint string
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

func New(cfg Config, client transport.Client) *Gateway {
	g := &Gateway{cfg: cfg, recorder: &transport.BufferRecorder{}}
	if cfg.Endpoint == "" {
		g.cfg.Endpoint = defaultEndpoint
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
	g.scrub = scrub.New().
		Secret(cfg.Password).
		BasicAuth(cfg.Login, cfg.Password).
		XMLElement("Number").
		XMLElement("CVV").
		XMLElement("Password")
	return g
}

func (g *Gateway) Transcript() string {
	return g.recorder.Transcript()
}

func (g *Gateway) Purchase(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.submit(ctx, amount, instrument, opts, "Sale")
}

func (g *Gateway) Authorize(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.submit(ctx, amount, instrument, opts, "Auth")
}

// Credit pushes funds to a card or stored profile with no prior transaction.
func (g *Gateway) Credit(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.submit(ctx, amount, instrument, opts, "Credit")
}

func (g *Gateway) submit(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options, txType string) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	req := g.newRequest(txType)
	req.Transaction.Amount = amount.Amount
	req.Transaction.Currency = amount.Currency
	req.Transaction.Reference = opts.OrderID
	req.Transaction.Terminal = opts.ExtraOr("terminal", "1")
	if err := req.setInstrument(instrument); err != nil {
		return gateway.Failure(err.Error(), gateway.ErrProcessingError), nil
	}
	if addr := opts.BillingAddress; addr != nil {
		req.Transaction.BillingZip = addr.Zip
	}
	return g.call(ctx, req, opts)
}

func (g *Gateway) Capture(ctx context.Context, amount gateway.Money, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.followUp(ctx, "Capture", amount.Amount, authorization, opts)
}

func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.followUp(ctx, "Void", 0, authorization, opts)
}

func (g *Gateway) Refund(ctx context.Context, amount gateway.Money, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.followUp(ctx, "Refund", amount.Amount, authorization, opts)
}

// followUp issues a chained operation against a prior transaction. The
// authorization must decode back into transaction id + approval code.
func (g *Gateway) followUp(ctx context.Context, txType string, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	parts, err := gateway.DecodeAuthorization(authorization, 2)
	if err != nil {
		return gateway.Failure(err.Error(), gateway.ErrProcessingError), nil
	}
	req := g.newRequest(txType)
	req.Transaction.Amount = amount
	req.Transaction.TransactionID = parts[0]
	req.Transaction.ApprovalCode = parts[1]
	return g.call(ctx, req, opts)
}

func (g *Gateway) Store(ctx context.Context, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	card, ok := instrument.(gateway.CreditCard)
	if !ok {
		return gateway.Failure("meridian can only store credit cards", gateway.ErrProcessingError), nil
	}
	req := g.newRequest("Store")
	req.Transaction.Card = newCardElement(card)
	return g.call(ctx, req, opts)
}

func (g *Gateway) Unstore(ctx context.Context, token string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	req := g.newRequest("Unstore")
	req.Transaction.Profile = token
	return g.call(ctx, req, opts)
}

func (g *Gateway) Verify(ctx context.Context, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return gateway.VerifyByAuthVoid(ctx, g, instrument, opts)
}

func (g *Gateway) Scrub(transcript string) string {
	return g.scrub.Scrub(transcript)
}

func (g *Gateway) checkCredentials() *gateway.Response {
	if g.cfg.Login == "" || g.cfg.Password == "" {
		return gateway.Failure("missing meridian credentials", gateway.ErrConfig)
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, req *request, opts gateway.Options) (*gateway.Response, error) {
	payload, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshalling request: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	headers := map[string]string{}
	if opts.IdempotencyKey != "" {
		headers["Idempotency-Key"] = opts.IdempotencyKey
	}

	reply, err := g.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         g.cfg.Endpoint,
		Body:        payload,
		ContentType: "text/xml",
		Headers:     headers,
		Idempotent:  opts.IdempotencyKey != "",
	})
	if err != nil {
		return nil, err
	}
	return g.parse(reply)
}
