package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trigger cards: charging one of these produces the documented outcome, the
// way provider sandboxes advertise magic numbers.
const (
	CardDeclined   = "4000000000000002"
	CardExpired    = "4000000000000069"
	CardBadCVC     = "4000000000000127"
	CardProcessing = "4000000000000119"
)

// apiFailure is a business refusal the API layer renders as an error
// envelope with the given HTTP status.
type apiFailure struct {
	Status  int
	Code    string
	Message string
}

func (e *apiFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func failure(status int, code, message string) *apiFailure {
	return &apiFailure{Status: status, Code: code, Message: message}
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type CardInput struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

type ChargeInput struct {
	Amount   int64
	Currency string
	Capture  bool
	Card     *CardInput
	Customer string
	OrderID  string
	Email    string
}

func (s *Service) CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error) {
	if in.Amount <= 0 {
		return nil, failure(400, "invalid_amount", "Amount must be positive.")
	}
	card, err := s.resolveCard(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := screenCard(card); err != nil {
		return nil, err
	}

	charge := &Charge{
		ID:         "ch_" + uuid.NewString(),
		Status:     StatusAuthorized,
		Amount:     in.Amount,
		Currency:   in.Currency,
		CardLast4:  last4(card.Number),
		CustomerID: in.Customer,
		OrderID:    in.OrderID,
		CreatedAt:  time.Now(),
	}
	if in.Capture {
		charge.Status = StatusCaptured
		charge.CapturedAmount = in.Amount
	}
	if err := s.store.CreateCharge(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *Service) CaptureCharge(ctx context.Context, id string, amount int64) (*Charge, error) {
	charge, err := s.getCharge(ctx, id)
	if err != nil {
		return nil, err
	}
	if charge.Status != StatusAuthorized {
		return nil, failure(409, "charge_not_capturable", fmt.Sprintf("Charge is %s, not authorized.", charge.Status))
	}
	if amount <= 0 || amount > charge.Amount {
		return nil, failure(409, "amount_too_large", "Capture amount exceeds the authorized amount.")
	}
	charge.Status = StatusCaptured
	charge.CapturedAmount = amount
	if err := s.store.UpdateCharge(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *Service) VoidCharge(ctx context.Context, id string) (*Charge, error) {
	charge, err := s.getCharge(ctx, id)
	if err != nil {
		return nil, err
	}
	switch charge.Status {
	case StatusVoided:
		return nil, failure(409, "charge_already_voided", "Charge has already been voided.")
	case StatusCaptured:
		return nil, failure(409, "charge_already_captured", "Charge is settled; refund it instead.")
	}
	charge.Status = StatusVoided
	if err := s.store.UpdateCharge(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *Service) RefundCharge(ctx context.Context, id string, amount int64) (*Refund, *Charge, error) {
	charge, err := s.getCharge(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if charge.Status != StatusCaptured {
		return nil, nil, failure(409, "charge_not_refundable", fmt.Sprintf("Charge is %s, not captured.", charge.Status))
	}
	remaining := charge.CapturedAmount - charge.RefundedAmount
	if remaining == 0 {
		return nil, nil, failure(409, "nothing_to_refund", "Charge has no refundable balance left.")
	}
	if amount <= 0 || amount > remaining {
		return nil, nil, failure(409, "amount_too_large", fmt.Sprintf("Refund amount exceeds the refundable balance of %d.", remaining))
	}

	charge.RefundedAmount += amount
	if err := s.store.UpdateCharge(ctx, charge); err != nil {
		return nil, nil, err
	}
	refund := &Refund{
		ID:        "re_" + uuid.NewString(),
		ChargeID:  charge.ID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateRefund(ctx, refund); err != nil {
		return nil, nil, err
	}
	return refund, charge, nil
}

func (s *Service) CreateCustomer(ctx context.Context, card CardInput, email string) (*Customer, error) {
	if err := screenCard(&card); err != nil {
		return nil, err
	}
	customer := &Customer{
		ID:         "cus_" + uuid.NewString(),
		CardNumber: card.Number,
		CardMonth:  card.ExpMonth,
		CardYear:   card.ExpYear,
		CardCVC:    card.CVC,
		Email:      email,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return failure(404, "customer_not_found", "No such customer.")
	}
	if customer.Deleted {
		return failure(404, "customer_not_found", "Customer has been deleted.")
	}
	customer.Deleted = true
	return s.store.UpdateCustomer(ctx, customer)
}

// CreateCredit pushes funds to a card with no originating charge. Credits
// leave no lifecycle state behind, so nothing is persisted.
func (s *Service) CreateCredit(_ context.Context, amount int64, card CardInput) (string, error) {
	if amount <= 0 {
		return "", failure(400, "invalid_amount", "Amount must be positive.")
	}
	if err := screenCard(&card); err != nil {
		return "", err
	}
	return "cr_" + uuid.NewString(), nil
}

// VerifyCard screens a card without creating a charge.
func (s *Service) VerifyCard(_ context.Context, card CardInput) (string, error) {
	if err := screenCard(&card); err != nil {
		return "", err
	}
	return "vf_" + uuid.NewString(), nil
}

func (s *Service) resolveCard(ctx context.Context, in ChargeInput) (*CardInput, error) {
	if in.Customer != "" {
		customer, err := s.store.GetCustomer(ctx, in.Customer)
		if err != nil || customer.Deleted {
			return nil, failure(404, "customer_not_found", "No such customer.")
		}
		return &CardInput{
			Number:   customer.CardNumber,
			ExpMonth: customer.CardMonth,
			ExpYear:  customer.CardYear,
			CVC:      customer.CardCVC,
		}, nil
	}
	if in.Card == nil {
		return nil, failure(400, "missing_instrument", "A card or customer is required.")
	}
	return in.Card, nil
}

func (s *Service) getCharge(ctx context.Context, id string) (*Charge, error) {
	charge, err := s.store.GetCharge(ctx, id)
	if err != nil {
		return nil, failure(404, "charge_not_found", "No such charge.")
	}
	return charge, nil
}

// screenCard applies the trigger-card table and basic validity checks.
func screenCard(card *CardInput) error {
	number := strings.ReplaceAll(card.Number, " ", "")
	switch number {
	case CardDeclined:
		return failure(402, "card_declined", "Your card was declined.")
	case CardExpired:
		return failure(402, "expired_card", "Your card has expired.")
	case CardBadCVC:
		return failure(402, "incorrect_cvc", "Your card's security code is incorrect.")
	case CardProcessing:
		return failure(402, "processing_error", "An error occurred while processing your card.")
	}
	if !luhnValid(number) {
		return failure(402, "incorrect_number", "Your card number is incorrect.")
	}
	if card.ExpMonth < 1 || card.ExpMonth > 12 {
		return failure(402, "invalid_expiry", "Your card's expiration month is invalid.")
	}
	now := time.Now()
	if card.ExpYear < now.Year() || (card.ExpYear == now.Year() && time.Month(card.ExpMonth) < now.Month()) {
		return failure(402, "expired_card", "Your card has expired.")
	}
	return nil
}

func luhnValid(number string) bool {
	if len(number) < 12 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func last4(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}
