// Package gateway defines the normalized transaction contract shared by all
// payment provider adapters: payment instruments, the options bag, the
// uniform verb set, and the normalized response every adapter returns.
package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Instrument is the payment credential submitted with a transaction.
// Exactly one concrete type is active per call: CreditCard, BankAccount,
// Token, or NetworkToken.
type Instrument interface {
	// Validate performs the client-side checks possible without a network
	// call. Providers remain the authority; this only rejects input that can
	// never succeed.
	Validate() error

	instrument()
}

// CreditCard is a raw card: number, expiry, verification value, holder name.
type CreditCard struct {
	Number            string
	Month             int
	Year              int
	VerificationValue string
	HolderName        string
}

func (CreditCard) instrument() {}

func (c CreditCard) Validate() error {
	number := strings.ReplaceAll(c.Number, " ", "")
	if !isDigits(number) || len(number) < 12 || len(number) > 19 {
		return errors.New("card number must be 12-19 digits")
	}
	if !luhnValid(number) {
		return errors.New("card number fails luhn check")
	}
	if c.Month < 1 || c.Month > 12 {
		return errors.New("expiry month must be 01..12")
	}
	if c.Year < 100 {
		return errors.New("expiry year must be four digits")
	}
	if expired(c.Month, c.Year, time.Now()) {
		return errors.New("card is expired")
	}
	return nil
}

// Last4 returns the final four digits for display and logging.
func (c CreditCard) Last4() string {
	n := strings.ReplaceAll(c.Number, " ", "")
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}

// BankAccountType distinguishes checking from savings accounts.
type BankAccountType string

const (
	BankAccountChecking BankAccountType = "checking"
	BankAccountSavings  BankAccountType = "savings"
)

type BankAccount struct {
	RoutingNumber string
	AccountNumber string
	HolderName    string
	Type          BankAccountType
}

func (BankAccount) instrument() {}

func (b BankAccount) Validate() error {
	if len(b.RoutingNumber) != 9 || !isDigits(b.RoutingNumber) {
		return errors.New("routing number must be 9 digits")
	}
	if !abaValid(b.RoutingNumber) {
		return errors.New("routing number fails checksum")
	}
	if b.AccountNumber == "" || !isDigits(b.AccountNumber) {
		return errors.New("account number is required")
	}
	if b.HolderName == "" {
		return errors.New("account holder name is required")
	}
	return nil
}

// Token is an opaque reference produced by a prior Store call. It is only
// meaningful to the adapter that issued it.
type Token struct {
	Value string
}

func (Token) instrument() {}

func (t Token) Validate() error {
	if t.Value == "" {
		return errors.New("token value is required")
	}
	return nil
}

// NetworkToken is a network-issued token (Apple Pay, Google Pay) carrying a
// one-time cryptogram.
type NetworkToken struct {
	Number     string
	Cryptogram string
	ECI        string
	Source     string
	Month      int
	Year       int
}

func (NetworkToken) instrument() {}

func (n NetworkToken) Validate() error {
	if !isDigits(n.Number) || len(n.Number) < 12 {
		return errors.New("network token number must be numeric")
	}
	if n.Cryptogram == "" {
		return errors.New("cryptogram is required")
	}
	return nil
}

// expired reports whether the MM/YYYY expiry is past. A card is valid
// through the last day of its expiry month.
func expired(month, year int, now time.Time) bool {
	endOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0).
		Add(-time.Nanosecond)
	return now.After(endOfMonth)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
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

// abaValid applies the ABA routing-number checksum (3-7-1 weighting).
func abaValid(routing string) bool {
	sum := 0
	weights := [...]int{3, 7, 1}
	for i := 0; i < 9; i++ {
		sum += int(routing[i]-'0') * weights[i%3]
	}
	return sum%10 == 0
}

// describeInstrument names the instrument variant for error messages without
// leaking the credential itself.
func describeInstrument(i Instrument) string {
	switch v := i.(type) {
	case CreditCard:
		return fmt.Sprintf("card ending %s", v.Last4())
	case BankAccount:
		return "bank account"
	case Token:
		return "stored token"
	case NetworkToken:
		return "network token"
	default:
		return "instrument"
	}
}
