package stanza

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateway/scrub"
	"github.com/fimlabs/paygate/gateway/transport"
)

type cardPayload struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
	Name     string `json:"name,omitempty"`
}

func newCardPayload(c gateway.CreditCard) *cardPayload {
	return &cardPayload{
		Number:   c.Number,
		ExpMonth: c.Month,
		ExpYear:  c.Year,
		CVC:      c.VerificationValue,
		Name:     c.HolderName,
	}
}

type networkTokenPayload struct {
	Number     string `json:"number"`
	Cryptogram string `json:"cryptogram"`
	ECI        string `json:"eci,omitempty"`
	Source     string `json:"source,omitempty"`
	ExpMonth   int    `json:"exp_month,omitempty"`
	ExpYear    int    `json:"exp_year,omitempty"`
}

type chargeRequest struct {
	Amount         int64                `json:"amount"`
	Currency       string               `json:"currency"`
	Capture        bool                 `json:"capture"`
	Card           *cardPayload         `json:"card,omitempty"`
	Customer       string               `json:"customer,omitempty"`
	NetworkToken   *networkTokenPayload `json:"network_token,omitempty"`
	OrderID        string               `json:"order_id,omitempty"`
	Description    string               `json:"description,omitempty"`
	Email          string               `json:"email,omitempty"`
	IP             string               `json:"ip,omitempty"`
	BillingZip     string               `json:"billing_zip,omitempty"`
	BillingCountry string               `json:"billing_country,omitempty"`
	Metadata       map[string]string    `json:"metadata,omitempty"`
}

func (r *chargeRequest) setInstrument(instrument gateway.Instrument) error {
	switch v := instrument.(type) {
	case gateway.CreditCard:
		r.Card = newCardPayload(v)
	case gateway.Token:
		r.Customer = v.Value
	case gateway.NetworkToken:
		r.NetworkToken = &networkTokenPayload{
			Number:     v.Number,
			Cryptogram: v.Cryptogram,
			ECI:        v.ECI,
			Source:     v.Source,
			ExpMonth:   v.Month,
			ExpYear:    v.Year,
		}
	default:
		return errors.New("stanza does not accept bank accounts")
	}
	return nil
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type customerRequest struct {
	Card  *cardPayload `json:"card"`
	Email string       `json:"email,omitempty"`
}

type verificationRequest struct {
	Card *cardPayload `json:"card"`
}

// apiObject is the union of every successful Stanza reply. Charges,
// refunds, customers, and verifications all carry id and status.
type apiObject struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount,omitempty"`
	Currency       string `json:"currency,omitempty"`
	CapturedAmount int64  `json:"captured_amount,omitempty"`
	RefundedAmount int64  `json:"refunded_amount,omitempty"`
	ChargeID       string `json:"charge_id,omitempty"`
	Last4          string `json:"last4,omitempty"`
	Deleted        bool   `json:"deleted,omitempty"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) parse(reply *transport.Reply) (*gateway.Response, error) {
	if reply.StatusCode >= http.StatusOK && reply.StatusCode < http.StatusMultipleChoices {
		return g.parseSuccess(reply)
	}

	var envelope apiError
	if err := json.Unmarshal(reply.Body, &envelope); err != nil || envelope.Error.Code == "" {
		return nil, fmt.Errorf("stanza returned unparseable status %d: %s", reply.StatusCode, string(reply.Body))
	}

	resp := gateway.Failure(envelope.Error.Message, mapErrorCode(envelope.Error.Code))
	resp.TestMode = g.cfg.TestMode
	resp.Params.Set("provider_code", envelope.Error.Code)
	return resp, nil
}

func (g *Gateway) parseSuccess(reply *transport.Reply) (*gateway.Response, error) {
	if len(reply.Body) == 0 {
		// DELETE /v1/customers answers 204.
		resp := gateway.NewResponse(true, "OK")
		resp.TestMode = g.cfg.TestMode
		return resp, nil
	}

	var obj apiObject
	if err := json.Unmarshal(reply.Body, &obj); err != nil {
		return nil, fmt.Errorf("error decoding stanza response: %w", err)
	}

	resp := gateway.NewResponse(true, "Approved")
	resp.Authorization = obj.ID
	resp.TestMode = g.cfg.TestMode
	resp.Params.Set("id", obj.ID)
	if obj.Status != "" {
		resp.Params.Set("status", obj.Status)
	}
	if obj.Amount != 0 {
		resp.Params.Set("amount", fmt.Sprintf("%d", obj.Amount))
	}
	if obj.Currency != "" {
		resp.Params.Set("currency", obj.Currency)
	}
	if obj.CapturedAmount != 0 {
		resp.Params.Set("captured_amount", fmt.Sprintf("%d", obj.CapturedAmount))
	}
	if obj.RefundedAmount != 0 {
		resp.Params.Set("refunded_amount", fmt.Sprintf("%d", obj.RefundedAmount))
	}
	if obj.ChargeID != "" {
		resp.Params.Set("charge_id", obj.ChargeID)
	}
	if obj.Last4 != "" {
		resp.Params.Set("last4", obj.Last4)
	}
	return resp, nil
}

// mapErrorCode folds Stanza's codes into the cross-provider taxonomy.
func mapErrorCode(code string) gateway.ErrorCode {
	switch code {
	case "card_declined", "insufficient_funds", "fraud_suspected":
		return gateway.ErrCardDeclined
	case "incorrect_cvc":
		return gateway.ErrIncorrectCVC
	case "expired_card":
		return gateway.ErrExpiredCard
	case "incorrect_number":
		return gateway.ErrIncorrectNumber
	case "invalid_expiry":
		return gateway.ErrInvalidExpiry
	case "authentication_failed":
		return gateway.ErrConfig
	default:
		return gateway.ErrProcessingError
	}
}

var bearerKey = regexp.MustCompile(`(Bearer )\S+`)

func (g *Gateway) scrubber() *scrub.Scrubber {
	return scrub.New().
		Secret(g.cfg.APIKey).
		Pattern(bearerKey).
		JSONField("number").
		JSONField("cvc").
		JSONField("cryptogram")
}
