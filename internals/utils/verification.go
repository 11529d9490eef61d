package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// DigestToken returns the hex sha256 digest of a verification artifact.
// Only digests are persisted; the plaintext goes out by email exactly once.
func DigestToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// NewEmailVerificationToken generates a high-entropy single-use token and
// returns both the plaintext (for delivery) and its digest (for storage).
func NewEmailVerificationToken() (plain string, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(buf)
	return plain, DigestToken(plain), nil
}

// NewTwoFactorCode generates a six-digit code drawn uniformly from
// [100000, 1000000). rand.Int avoids modulo bias over the range.
func NewTwoFactorCode() (code string, digest string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", "", err
	}
	code = fmt.Sprintf("%06d", n.Int64()+100000)
	return code, DigestToken(code), nil
}

// ConstantTimeEquals compares two digests. A length mismatch is rejected
// immediately without touching the contents; equal lengths are compared in
// constant time.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
