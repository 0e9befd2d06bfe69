package paybridge

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateway/transport"
)

func setInstrument(form url.Values, instrument gateway.Instrument) error {
	switch v := instrument.(type) {
	case gateway.CreditCard:
		form.Set("card", strings.ReplaceAll(v.Number, " ", ""))
		form.Set("exp", fmt.Sprintf("%02d%02d", v.Month, v.Year%100))
		form.Set("cvv", v.VerificationValue)
		if v.HolderName != "" {
			form.Set("name", v.HolderName)
		}
	case gateway.Token:
		form.Set("token", v.Value)
	case gateway.BankAccount:
		form.Set("routing", v.RoutingNumber)
		form.Set("account", v.AccountNumber)
		form.Set("name", v.HolderName)
		form.Set("accttype", string(v.Type))
	default:
		return errors.New("paybridge does not accept network tokens")
	}
	return nil
}

// parse decodes PayBridge's query-string reply. The gateway answers 200 for
// declines too, so only an unparseable body is an error.
func (g *Gateway) parse(reply *transport.Reply) (*gateway.Response, error) {
	fields, err := url.ParseQuery(strings.TrimSpace(string(reply.Body)))
	if err != nil || fields.Get("status") == "" {
		return nil, fmt.Errorf("paybridge returned unparseable status %d: %s", reply.StatusCode, string(reply.Body))
	}

	approved := fields.Get("status") == "approved"
	message := fields.Get("message")
	if message == "" {
		message = fields.Get("status")
	}

	resp := gateway.NewResponse(approved, message)
	resp.TestMode = g.cfg.TestMode
	for _, key := range []string{"status", "txid", "authcode", "token", "code", "avs", "amount"} {
		if v := fields.Get(key); v != "" {
			resp.Params.Set(key, v)
		}
	}

	if approved {
		switch {
		case fields.Get("token") != "":
			resp.Authorization = fields.Get("token")
		default:
			resp.Authorization = fields.Get("txid")
		}
		return resp, nil
	}

	resp.ErrorCode = mapDeclineCode(fields.Get("code"))
	return resp, nil
}

func mapDeclineCode(code string) gateway.ErrorCode {
	switch code {
	case "deny", "funds", "fraud":
		return gateway.ErrCardDeclined
	case "cvv":
		return gateway.ErrIncorrectCVC
	case "expired":
		return gateway.ErrExpiredCard
	case "cardnum":
		return gateway.ErrIncorrectNumber
	case "exp":
		return gateway.ErrInvalidExpiry
	case "auth":
		return gateway.ErrConfig
	default:
		return gateway.ErrProcessingError
	}
}
