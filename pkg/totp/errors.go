package totp

import "errors"

var (
	ErrEmptySecret           = errors.New("totp: secret is empty")
	ErrInvalidSecretEncoding = errors.New("totp: secret is not valid base32")
	ErrInvalidDigitCount     = errors.New("totp: invalid digit count")
	ErrInvalidPeriod         = errors.New("totp: invalid period")
	ErrUnsupportedAlgorithm  = errors.New("totp: unsupported algorithm")
	ErrInvalidURI            = errors.New("totp: invalid otpauth uri")
)
