package totp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pquerna/otp"
)

// URIKey is the content of an otpauth://totp/ provisioning URI.
type URIKey struct {
	Issuer      string
	AccountName string
	Input       Input
}

// ParseURI reads an otpauth:// URI as exported by authenticator apps.
// Missing algorithm, digits and period fall back to the defaults.
func ParseURI(uri string) (URIKey, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return URIKey{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != "otpauth" {
		return URIKey{}, fmt.Errorf("%w: scheme %q", ErrInvalidURI, u.Scheme)
	}

	key, err := otp.NewKeyFromURL(u.String())
	if err != nil {
		return URIKey{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if key.Type() != "totp" {
		return URIKey{}, fmt.Errorf("%w: type %q is not totp", ErrInvalidURI, key.Type())
	}

	q := u.Query()

	// key.Algorithm and key.Period fall back to defaults on unknown values,
	// so both are read from the query directly.
	alg, err := ParseAlgorithm(q.Get("algorithm"))
	if err != nil {
		return URIKey{}, err
	}

	in := Input{
		Secret:    key.Secret(),
		Digits:    DefaultDigits,
		Period:    DefaultPeriod,
		Algorithm: alg.String(),
	}
	if raw := q.Get("digits"); raw != "" {
		digits, err := strconv.Atoi(raw)
		if err != nil {
			return URIKey{}, fmt.Errorf("%w: digits %q", ErrInvalidURI, raw)
		}
		in.Digits = digits
	}
	if raw := q.Get("period"); raw != "" {
		period, err := strconv.Atoi(raw)
		if err != nil {
			return URIKey{}, fmt.Errorf("%w: period %q", ErrInvalidURI, raw)
		}
		in.Period = period
	}

	return URIKey{
		Issuer:      key.Issuer(),
		AccountName: key.AccountName(),
		Input:       in,
	}, nil
}
