package sandbox

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// API binds the Stanza wire protocol to the sandbox service.
type API struct {
	service *Service
	apiKey  string
	logger  *slog.Logger
}

func NewAPI(service *Service, apiKey string, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{service: service, apiKey: apiKey, logger: logger}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.authenticate)
	r.Post("/v1/charges", a.createCharge)
	r.Post("/v1/charges/{id}/capture", a.captureCharge)
	r.Post("/v1/charges/{id}/void", a.voidCharge)
	r.Post("/v1/charges/{id}/refunds", a.refundCharge)
	r.Post("/v1/credits", a.createCredit)
	r.Post("/v1/customers", a.createCustomer)
	r.Delete("/v1/customers/{id}", a.deleteCustomer)
	r.Post("/v1/verifications", a.verifyCard)
	return r
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		key := strings.TrimPrefix(header, "Bearer ")
		if key == "" || key != a.apiKey {
			a.renderError(w, failure(http.StatusUnauthorized, "authentication_failed", "Invalid API key."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type cardJSON struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
	Name     string `json:"name"`
}

func (c *cardJSON) input() *CardInput {
	if c == nil {
		return nil
	}
	return &CardInput{Number: c.Number, ExpMonth: c.ExpMonth, ExpYear: c.ExpYear, CVC: c.CVC}
}

type chargeJSON struct {
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	Capture  bool      `json:"capture"`
	Card     *cardJSON `json:"card"`
	Customer string    `json:"customer"`
	OrderID  string    `json:"order_id"`
	Email    string    `json:"email"`
}

type amountJSON struct {
	Amount int64 `json:"amount"`
}

func (a *API) createCharge(w http.ResponseWriter, r *http.Request) {
	var body chargeJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.renderError(w, failure(http.StatusBadRequest, "invalid_request", "Malformed JSON body."))
		return
	}
	charge, err := a.service.CreateCharge(r.Context(), ChargeInput{
		Amount:   body.Amount,
		Currency: body.Currency,
		Capture:  body.Capture,
		Card:     body.Card.input(),
		Customer: body.Customer,
		OrderID:  body.OrderID,
		Email:    body.Email,
	})
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderCharge(w, http.StatusCreated, charge)
}

func (a *API) captureCharge(w http.ResponseWriter, r *http.Request) {
	var body amountJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.renderError(w, failure(http.StatusBadRequest, "invalid_request", "Malformed JSON body."))
		return
	}
	charge, err := a.service.CaptureCharge(r.Context(), chi.URLParam(r, "id"), body.Amount)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderCharge(w, http.StatusOK, charge)
}

func (a *API) voidCharge(w http.ResponseWriter, r *http.Request) {
	charge, err := a.service.VoidCharge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderCharge(w, http.StatusOK, charge)
}

func (a *API) refundCharge(w http.ResponseWriter, r *http.Request) {
	var body amountJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.renderError(w, failure(http.StatusBadRequest, "invalid_request", "Malformed JSON body."))
		return
	}
	refund, charge, err := a.service.RefundCharge(r.Context(), chi.URLParam(r, "id"), body.Amount)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderJSON(w, http.StatusCreated, map[string]any{
		"id":              refund.ID,
		"charge_id":       refund.ChargeID,
		"amount":          refund.Amount,
		"status":          "refunded",
		"refunded_amount": charge.RefundedAmount,
	})
}

func (a *API) createCredit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount int64     `json:"amount"`
		Card   *cardJSON `json:"card"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Card == nil {
		a.renderError(w, failure(http.StatusBadRequest, "invalid_request", "A card is required."))
		return
	}
	id, err := a.service.CreateCredit(r.Context(), body.Amount, *body.Card.input())
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": "credited",
		"amount": body.Amount,
	})
}

func (a *API) createCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Card  *cardJSON `json:"card"`
		Email string    `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Card == nil {
		a.renderError(w, failure(http.StatusBadRequest, "invalid_request", "A card is required."))
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), *body.Card.input(), body.Email)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderJSON(w, http.StatusCreated, map[string]any{
		"id":     customer.ID,
		"status": "stored",
		"last4":  last4(customer.CardNumber),
	})
}

func (a *API) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) verifyCard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Card *cardJSON `json:"card"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Card == nil {
		a.renderError(w, failure(http.StatusBadRequest, "invalid_request", "A card is required."))
		return
	}
	id, err := a.service.VerifyCard(r.Context(), *body.Card.input())
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderJSON(w, http.StatusOK, map[string]any{"id": id, "status": "verified"})
}

func (a *API) renderCharge(w http.ResponseWriter, status int, c *Charge) {
	a.renderJSON(w, status, map[string]any{
		"id":              c.ID,
		"status":          string(c.Status),
		"amount":          c.Amount,
		"currency":        c.Currency,
		"captured_amount": c.CapturedAmount,
		"refunded_amount": c.RefundedAmount,
		"last4":           c.CardLast4,
	})
}

func (a *API) renderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *API) renderError(w http.ResponseWriter, err error) {
	var apiErr *apiFailure
	if !errors.As(err, &apiErr) {
		a.logger.Error("sandbox internal error", "error", err)
		apiErr = failure(http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
	a.renderJSON(w, apiErr.Status, map[string]any{
		"error": map[string]string{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}
