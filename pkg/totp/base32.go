package totp

import (
	"encoding/base32"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var rawEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Secret is the raw shared key decoded from its base32 form.
type Secret []byte

// String re-encodes the secret as unpadded upper case base32.
func (s Secret) String() string {
	return rawEncoding.EncodeToString(s)
}

// DecodeSecret decodes a user entered base32 secret. Whitespace, trailing
// padding and lower case letters are accepted.
func DecodeSecret(secret string) (Secret, error) {
	normalized := normalizeSecret(secret)
	if normalized == "" {
		return nil, ErrEmptySecret
	}

	if i := strings.IndexFunc(normalized, notInAlphabet); i >= 0 {
		r, _ := utf8.DecodeRuneInString(normalized[i:])
		return nil, fmt.Errorf("%w: unexpected character %q at position %d", ErrInvalidSecretEncoding, r, i)
	}

	// RFC 4648 never produces a final group of 1, 3 or 6 characters.
	switch len(normalized) % 8 {
	case 1, 3, 6:
		return nil, fmt.Errorf("%w: truncated final group of %d characters", ErrInvalidSecretEncoding, len(normalized)%8)
	}

	key, err := rawEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretEncoding, err)
	}
	if len(key) == 0 {
		return nil, ErrEmptySecret
	}

	return Secret(key), nil
}

func normalizeSecret(secret string) string {
	secret = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, secret)
	return strings.TrimRight(secret, "=")
}

func notInAlphabet(r rune) bool {
	return !strings.ContainsRune(base32Alphabet, r)
}
