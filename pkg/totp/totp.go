// Package totp implements HOTP (RFC 4226) and TOTP (RFC 6238) code generation
// from base32 encoded secrets.
package totp

import "fmt"

// Generate returns the code for cfg at the given unix time. The current time
// is always supplied by the caller.
func Generate(cfg Config, atUnixSeconds uint64) (string, error) {
	counter, err := Counter(cfg.Period, atUnixSeconds)
	if err != nil {
		return "", err
	}
	return HOTP(cfg.Secret, counter, cfg.Digits, cfg.Algorithm)
}

// Counter is the moving factor for the time window containing atUnixSeconds.
func Counter(period, atUnixSeconds uint64) (uint64, error) {
	if period < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPeriod, period)
	}
	return atUnixSeconds / period, nil
}

// RemainingSeconds is the number of seconds until the next code. It is
// period, not 0, on the first second of a window.
func RemainingSeconds(period, atUnixSeconds uint64) (uint64, error) {
	if period < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPeriod, period)
	}
	return period - atUnixSeconds%period, nil
}
