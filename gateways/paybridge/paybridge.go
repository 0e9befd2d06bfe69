// Package paybridge implements the gateway contract for PayBridge's legacy
// form-encoded protocol: every verb is a POST of key=value pairs and the
// reply is a single query-string line.
package paybridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateway/scrub"
	"github.com/fimlabs/paygate/gateway/transport"
)

const defaultEndpoint = "https://gw.paybridge.test/process"

type Config struct {
	MerchantID string
	SecretKey  string
	Endpoint   string
	Timeout    time.Duration
	TestMode   bool

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
		Secret(cfg.SecretKey).
		FormField("key").
		FormField("card").
		FormField("cvv")
	return g
}

func (g *Gateway) Transcript() string {
	return g.recorder.Transcript()
}

func (g *Gateway) Purchase(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.submit(ctx, "sale", amount, instrument, opts)
}

func (g *Gateway) Authorize(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.submit(ctx, "auth", amount, instrument, opts)
}

// Credit pushes funds to an instrument with no prior transaction.
func (g *Gateway) Credit(ctx context.Context, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return g.submit(ctx, "credit", amount, instrument, opts)
}

func (g *Gateway) submit(ctx context.Context, action string, amount gateway.Money, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	form := g.baseForm(action)
	form.Set("amount", fmt.Sprintf("%d", amount.Amount))
	form.Set("currency", amount.Currency)
	if opts.OrderID != "" {
		form.Set("orderid", opts.OrderID)
	}
	if opts.Email != "" {
		form.Set("email", opts.Email)
	}
	if err := setInstrument(form, instrument); err != nil {
		return gateway.Failure(err.Error(), gateway.ErrProcessingError), nil
	}
	if addr := opts.BillingAddress; addr != nil {
		form.Set("zip", addr.Zip)
		form.Set("country", addr.Country)
	}
	// PayBridge accepts arbitrary passthrough fields; never let them shadow
	// the fields set above.
	for k, v := range opts.Extra {
		if !form.Has(k) {
			form.Set(k, v)
		}
	}
	return g.call(ctx, form, opts)
}

func (g *Gateway) Capture(ctx context.Context, amount gateway.Money, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.followUp(ctx, "capture", amount.Amount, authorization, opts)
}

func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.followUp(ctx, "void", 0, authorization, opts)
}

func (g *Gateway) Refund(ctx context.Context, amount gateway.Money, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.followUp(ctx, "refund", amount.Amount, authorization, opts)
}

func (g *Gateway) followUp(ctx context.Context, action string, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	if authorization == "" {
		return gateway.Failure("authorization is required", gateway.ErrProcessingError), nil
	}
	form := g.baseForm(action)
	form.Set("txid", authorization)
	if amount > 0 {
		form.Set("amount", fmt.Sprintf("%d", amount))
	}
	return g.call(ctx, form, opts)
}

func (g *Gateway) Store(ctx context.Context, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	form := g.baseForm("store")
	if err := setInstrument(form, instrument); err != nil {
		return gateway.Failure(err.Error(), gateway.ErrProcessingError), nil
	}
	return g.call(ctx, form, opts)
}

func (g *Gateway) Unstore(ctx context.Context, token string, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.checkCredentials(); resp != nil {
		return resp, nil
	}
	form := g.baseForm("unstore")
	form.Set("token", token)
	return g.call(ctx, form, opts)
}

func (g *Gateway) Verify(ctx context.Context, instrument gateway.Instrument, opts gateway.Options) (*gateway.Response, error) {
	return gateway.VerifyByAuthVoid(ctx, g, instrument, opts)
}

func (g *Gateway) Scrub(transcript string) string {
	return g.scrub.Scrub(transcript)
}

func (g *Gateway) checkCredentials() *gateway.Response {
	if g.cfg.MerchantID == "" || g.cfg.SecretKey == "" {
		return gateway.Failure("missing paybridge credentials", gateway.ErrConfig)
	}
	return nil
}

func (g *Gateway) baseForm(action string) url.Values {
	form := url.Values{}
	form.Set("merchant", g.cfg.MerchantID)
	form.Set("key", g.cfg.SecretKey)
	form.Set("action", action)
	return form
}

func (g *Gateway) call(ctx context.Context, form url.Values, opts gateway.Options) (*gateway.Response, error) {
	headers := map[string]string{}
	if opts.IdempotencyKey != "" {
		headers["Idempotency-Key"] = opts.IdempotencyKey
	}

	reply, err := g.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         g.cfg.Endpoint,
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
		Headers:     headers,
		Idempotent:  opts.IdempotencyKey != "",
	})
	if err != nil {
		return nil, err
	}
	return g.parse(reply)
}
