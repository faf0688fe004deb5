package override

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidTTL       = errors.New("expiresInSeconds out of range")
	ErrCannotApprove    = errors.New("could not approve request")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenUsed        = errors.New("token already used")
	ErrTokenExpired     = errors.New("token expired")
	ErrResourceMismatch = errors.New("resource mismatch")
)

var clientErrors = []error{
	ErrInvalidInput,
	ErrInvalidTTL,
	ErrCannotApprove,
	ErrInvalidToken,
	ErrTokenUsed,
	ErrTokenExpired,
	ErrResourceMismatch,
}

// IsClientError reports whether err is a business-rule failure whose message
// can be shown to the caller as is.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
