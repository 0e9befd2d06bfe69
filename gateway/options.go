package gateway

// Address is a billing or shipping address. Adapters send only the fields
// their provider understands.
type Address struct {
	Name     string
	Company  string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Phone    string
}

// Options carries the recognized cross-cutting request options. Each adapter
// reads the subset its provider supports and ignores the rest; unknown Extra
// keys are never an error.
type Options struct {
	OrderID         string
	Description     string
	Email           string
	IP              string
	Currency        string
	BillingAddress  *Address
	ShippingAddress *Address

	// IdempotencyKey, when set, is forwarded to the provider and marks the
	// request safe for transport-level retry. Without it, purchase and
	// capture are attempted at most once.
	IdempotencyKey string

	// Extra holds provider-specific options. Adapters ignore keys they do
	// not recognize.
	Extra map[string]string
}

// ExtraOr returns Extra[key] or a fallback.
func (o Options) ExtraOr(key, fallback string) string {
	if v, ok := o.Extra[key]; ok {
		return v
	}
	return fallback
}
