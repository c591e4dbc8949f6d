package match

import "errors"

// Error types for the match package
const (
	ErrTypeValidation       = "validation"
	ErrTypeRetrievalTimeout = "retrieval_timeout"
	ErrTypeRetrievalFailed  = "retrieval_failed"
)

// Error represents a categorized search error.
type Error struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error values
var (
	ErrInvalidSupplierID = &Error{
		Type:    ErrTypeValidation,
		Message: "supplier identifier must normalize to exactly 14 digits",
		Code:    "INVALID_SUPPLIER_ID",
	}

	ErrRetrievalTimeout = &Error{
		Type:    ErrTypeRetrievalTimeout,
		Message: "candidate retrieval exceeded its time budget",
		Code:    "RETRIEVAL_TIMEOUT",
	}

	ErrRetrievalFailed = &Error{
		Type:    ErrTypeRetrievalFailed,
		Message: "candidate retrieval failed",
		Code:    "RETRIEVAL_FAILED",
	}
)

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return hasType(err, ErrTypeValidation)
}

// IsRetrievalTimeout reports whether err is a retrieval timeout.
func IsRetrievalTimeout(err error) bool {
	return hasType(err, ErrTypeRetrievalTimeout)
}

// IsRetrievalFailure reports whether err is a fatal retrieval error,
// including a fallback timeout.
func IsRetrievalFailure(err error) bool {
	return hasType(err, ErrTypeRetrievalFailed) || hasType(err, ErrTypeRetrievalTimeout)
}

func hasType(err error, errType string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errType
	}
	return false
}
