package gateway

// ErrorCode classifies a failed transaction into a closed, provider-
// independent set so calling code can branch without parsing provider text.
// Provider-specific codes are mapped to the nearest entry at the adapter
// boundary; the raw code stays available in Params.
type ErrorCode string

const (
	ErrCardDeclined    ErrorCode = "card_declined"
	ErrIncorrectCVC    ErrorCode = "incorrect_cvc"
	ErrExpiredCard     ErrorCode = "expired_card"
	ErrIncorrectNumber ErrorCode = "incorrect_number"
	ErrInvalidExpiry   ErrorCode = "invalid_expiry_date"
	ErrProcessingError ErrorCode = "processing_error"
	ErrConfig          ErrorCode = "config_error"
)

// Response is the normalized result every adapter call returns.
//
// Callers must check Success before trusting Authorization. Message is the
// only guaranteed human-readable field; ErrorCode is best effort and empty
// when the provider's failure does not map cleanly onto the taxonomy.
type Response struct {
	Success       bool
	Message       string
	Authorization string
	Params        *Params
	ErrorCode     ErrorCode
	TestMode      bool

	// Reversal carries the automatic void sub-response produced by Verify.
	Reversal *Response
}

// NewResponse builds a response with an initialized Params set.
func NewResponse(success bool, message string) *Response {
	return &Response{
		Success: success,
		Message: message,
		Params:  NewParams(),
	}
}

// Failure is shorthand for a failed response carrying a taxonomy code.
func Failure(message string, code ErrorCode) *Response {
	r := NewResponse(false, message)
	r.ErrorCode = code
	return r
}
