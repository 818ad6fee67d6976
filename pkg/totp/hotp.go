package totp

import (
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// maxExactDigits is the widest code where the truncated 31-bit value can
// still exceed 10^digits. Wider codes are the truncated value zero-padded.
const maxExactDigits = 10

// HOTP computes the RFC 4226 one-time password for counter.
func HOTP(secret Secret, counter uint64, digits int, alg Algorithm) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidDigitCount, digits)
	}
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	newHash, err := alg.hashFunc()
	if err != nil {
		return "", err
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(newHash, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	code := uint64(truncate(sum))
	if digits < maxExactDigits {
		code %= pow10(digits)
	}

	return zeropad(strconv.FormatUint(code, 10), digits), nil
}

// truncate is the RFC 4226 dynamic truncation of an HMAC result.
func truncate(sum []byte) uint32 {
	offset := sum[len(sum)-1] & 0x0f
	return binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
}

func pow10(n int) uint64 {
	modulo := uint64(1)
	for range n {
		modulo *= 10
	}
	return modulo
}

func zeropad(input string, length int) string {
	if len(input) >= length {
		return input
	}
	return strings.Repeat("0", length-len(input)) + input
}
