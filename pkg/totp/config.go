package totp

import (
	"errors"
	"fmt"
)

const (
	DefaultDigits = 6
	DefaultPeriod = 30

	MinDigits = 1
	MaxDigits = 10
	MinPeriod = 1
	MaxPeriod = 3600
)

// Config is everything needed to generate codes. It is treated as an
// immutable value: edits produce a new Config.
type Config struct {
	Secret    Secret
	Digits    int
	Period    uint64
	Algorithm Algorithm
}

// Input holds raw field values as entered by a user.
type Input struct {
	Secret    string
	Digits    int
	Period    int
	Algorithm string
}

// DefaultInput returns an Input with an empty secret and the default digits,
// period and algorithm.
func DefaultInput() Input {
	return Input{
		Digits:    DefaultDigits,
		Period:    DefaultPeriod,
		Algorithm: AlgorithmSHA1.String(),
	}
}

// ValidateSecret checks and decodes the secret field.
func ValidateSecret(secret string) (Secret, error) {
	return DecodeSecret(secret)
}

// ValidateDigits accepts digit counts in [MinDigits, MaxDigits].
func ValidateDigits(digits int) error {
	if digits < MinDigits || digits > MaxDigits {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidDigitCount, digits, MinDigits, MaxDigits)
	}
	return nil
}

// ValidatePeriod accepts periods in [MinPeriod, MaxPeriod] seconds.
func ValidatePeriod(period int) error {
	if period < MinPeriod || period > MaxPeriod {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidPeriod, period, MinPeriod, MaxPeriod)
	}
	return nil
}

// NewConfig validates every field of in and builds a Config. All field
// errors are returned together; each can be matched with errors.Is.
func NewConfig(in Input) (Config, error) {
	var errs []error

	secret, err := ValidateSecret(in.Secret)
	if err != nil {
		errs = append(errs, err)
	}
	if err := ValidateDigits(in.Digits); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePeriod(in.Period); err != nil {
		errs = append(errs, err)
	}
	alg, err := ParseAlgorithm(in.Algorithm)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return Config{
		Secret:    secret,
		Digits:    in.Digits,
		Period:    uint64(in.Period),
		Algorithm: alg,
	}, nil
}

// Validate reports whether c could have been produced by NewConfig.
func (c Config) Validate() error {
	var errs []error
	if len(c.Secret) == 0 {
		errs = append(errs, ErrEmptySecret)
	}
	if err := ValidateDigits(c.Digits); err != nil {
		errs = append(errs, err)
	}
	if c.Period < MinPeriod || c.Period > MaxPeriod {
		errs = append(errs, fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidPeriod, c.Period, MinPeriod, MaxPeriod))
	}
	if _, err := c.Algorithm.hashFunc(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
