package gateway

import (
	"context"
	"fmt"
)

// Gateway is the uniform verb set every provider adapter implements.
//
// Business outcomes (declines, validation failures, bad credentials, wrong
// transaction state) come back as a Response with Success false; errors are
// reserved for transport failures and replies the adapter cannot interpret.
type Gateway interface {
	// Purchase authorizes and settles in one step.
	Purchase(ctx context.Context, amount Money, instrument Instrument, opts Options) (*Response, error)

	// Authorize reserves funds without settling. The returned authorization
	// feeds Capture or Void.
	Authorize(ctx context.Context, amount Money, instrument Instrument, opts Options) (*Response, error)

	// Capture settles a previously authorized amount. The amount may be
	// smaller than the authorization; the remainder is released per provider
	// semantics.
	Capture(ctx context.Context, amount Money, authorization string, opts Options) (*Response, error)

	// Void cancels an authorization or reverses an unsettled purchase.
	// Voiding twice, or voiding after settlement, fails.
	Void(ctx context.Context, authorization string, opts Options) (*Response, error)

	// Refund returns funds from a settled transaction. Refunding more than
	// the remaining captured balance fails, never clamps.
	Refund(ctx context.Context, amount Money, authorization string, opts Options) (*Response, error)

	// Credit pushes funds to an instrument with no prior transaction to
	// reference. Not every provider offers it; those that don't fail with a
	// processing_error response.
	Credit(ctx context.Context, amount Money, instrument Instrument, opts Options) (*Response, error)

	// Store tokenizes an instrument; the resulting Token is usable wherever
	// an Instrument is accepted by the same adapter.
	Store(ctx context.Context, instrument Instrument, opts Options) (*Response, error)

	// Unstore invalidates a stored token. Subsequent use of the token fails.
	Unstore(ctx context.Context, token string, opts Options) (*Response, error)

	// Verify validates an instrument without leaving a settled charge.
	Verify(ctx context.Context, instrument Instrument, opts Options) (*Response, error)

	// Scrub redacts card numbers, verification values, and credentials from
	// a captured transcript. Pure and idempotent.
	Scrub(transcript string) string
}

// VerifyAmount is the minor-unit amount the composite Verify helper
// authorizes before reversing.
const VerifyAmount int64 = 100

// VerifyByAuthVoid is the canonical Verify for providers without a native
// verification endpoint: authorize a minimal amount, then automatically void
// it. Success reflects the authorize leg; the void's response is attached as
// Reversal for inspection.
func VerifyByAuthVoid(ctx context.Context, g Gateway, instrument Instrument, opts Options) (*Response, error) {
	currency := opts.Currency
	if currency == "" {
		currency = "USD"
	}
	amount, err := NewMoney(VerifyAmount, currency)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", describeInstrument(instrument), err)
	}

	auth, err := g.Authorize(ctx, amount, instrument, opts)
	if err != nil {
		return nil, err
	}
	if !auth.Success {
		return auth, nil
	}

	void, err := g.Void(ctx, auth.Authorization, opts)
	if err != nil {
		// The authorize leg stands; the hold expires on its own.
		return auth, nil
	}
	auth.Reversal = void
	return auth, nil
}
