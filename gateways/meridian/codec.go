package meridian

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateway/transport"
)

type request struct {
	XMLName     xml.Name    `xml:"MeridianRequest"`
	Credentials credentials `xml:"Credentials"`
	Transaction txn         `xml:"Transaction"`
}

type credentials struct {
	Login    string `xml:"Login"`
	Password string `xml:"Password"`
}

type txn struct {
	Type          string       `xml:"type,attr"`
	Amount        int64        `xml:"Amount,omitempty"`
	Currency      string       `xml:"Currency,omitempty"`
	Card          *cardElement `xml:"Card,omitempty"`
	Profile       string       `xml:"Profile,omitempty"`
	TransactionID string       `xml:"TransactionID,omitempty"`
	ApprovalCode  string       `xml:"ApprovalCode,omitempty"`
	Reference     string       `xml:"Reference,omitempty"`
	Terminal      string       `xml:"Terminal,omitempty"`
	BillingZip    string       `xml:"BillingZip,omitempty"`
}

type cardElement struct {
	Number   string `xml:"Number"`
	ExpMonth int    `xml:"ExpMonth"`
	ExpYear  int    `xml:"ExpYear"`
	CVV      string `xml:"CVV"`
	Holder   string `xml:"Holder,omitempty"`
}

func newCardElement(c gateway.CreditCard) *cardElement {
	return &cardElement{
		Number:   c.Number,
		ExpMonth: c.Month,
		ExpYear:  c.Year,
		CVV:      c.VerificationValue,
		Holder:   c.HolderName,
	}
}

func (g *Gateway) newRequest(txType string) *request {
	return &request{
		Credentials: credentials{Login: g.cfg.Login, Password: g.cfg.Password},
		Transaction: txn{Type: txType},
	}
}

func (r *request) setInstrument(instrument gateway.Instrument) error {
	switch v := instrument.(type) {
	case gateway.CreditCard:
		r.Transaction.Card = newCardElement(v)
	case gateway.Token:
		r.Transaction.Profile = v.Value
	default:
		return errors.New("meridian accepts credit cards and stored profiles")
	}
	return nil
}

type response struct {
	XMLName       xml.Name `xml:"MeridianResponse"`
	Code          string   `xml:"Code"`
	Message       string   `xml:"Message"`
	TransactionID string   `xml:"TransactionID"`
	ApprovalCode  string   `xml:"ApprovalCode"`
	ProfileID     string   `xml:"ProfileID"`
	Amount        int64    `xml:"Amount"`
}

const approvedCode = "00"

func (g *Gateway) parse(reply *transport.Reply) (*gateway.Response, error) {
	var parsed response
	if err := xml.Unmarshal(reply.Body, &parsed); err != nil {
		return nil, fmt.Errorf("meridian returned unparseable status %d: %w", reply.StatusCode, err)
	}
	if parsed.Code == "" {
		return nil, fmt.Errorf("meridian response missing result code (status %d)", reply.StatusCode)
	}

	resp := gateway.NewResponse(parsed.Code == approvedCode, parsed.Message)
	resp.TestMode = g.cfg.TestMode
	resp.Params.Set("code", parsed.Code)
	if parsed.TransactionID != "" {
		resp.Params.Set("transaction_id", parsed.TransactionID)
	}
	if parsed.ApprovalCode != "" {
		resp.Params.Set("approval_code", parsed.ApprovalCode)
	}
	if parsed.Amount != 0 {
		resp.Params.Set("amount", fmt.Sprintf("%d", parsed.Amount))
	}

	if !resp.Success {
		resp.ErrorCode = mapResultCode(parsed.Code)
		return resp, nil
	}

	switch {
	case parsed.ProfileID != "":
		resp.Authorization = parsed.ProfileID
		resp.Params.Set("profile_id", parsed.ProfileID)
	case parsed.TransactionID != "":
		resp.Authorization = gateway.EncodeAuthorization(parsed.TransactionID, parsed.ApprovalCode)
	}
	return resp, nil
}

// mapResultCode folds Meridian's ISO-style result codes into the taxonomy.
func mapResultCode(code string) gateway.ErrorCode {
	switch code {
	case "05", "51", "59":
		return gateway.ErrCardDeclined
	case "14":
		return gateway.ErrIncorrectNumber
	case "33", "80":
		return gateway.ErrInvalidExpiry
	case "54":
		return gateway.ErrExpiredCard
	case "82", "N7":
		return gateway.ErrIncorrectCVC
	case "A1", "A3":
		return gateway.ErrConfig
	default:
		return gateway.ErrProcessingError
	}
}
