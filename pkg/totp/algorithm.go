package totp

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"github.com/samber/lo"
)

// Algorithm selects the HMAC hash function.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

// SupportedAlgorithms lists every algorithm accepted by HOTP.
var SupportedAlgorithms = []Algorithm{AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512}

func (a Algorithm) String() string {
	return string(a)
}

func (a Algorithm) hashFunc() (func() hash.Hash, error) {
	switch a {
	case AlgorithmSHA1:
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(a))
}

// ParseAlgorithm maps a user supplied name like "sha256" or "SHA-256" to an
// Algorithm. An empty name selects SHA1.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	if normalized == "" {
		return AlgorithmSHA1, nil
	}

	alg := Algorithm(normalized)
	if !lo.Contains(SupportedAlgorithms, alg) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	return alg, nil
}
