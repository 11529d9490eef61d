package utils

import "golang.org/x/crypto/bcrypt"

// bcryptCost balances login latency against brute-force resistance.
const bcryptCost = 10

// HashPassword returns the salted bcrypt hash of plain. Callers must abort
// their write entirely when this fails; a user record is never persisted with
// incomplete password state.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares plain against a stored bcrypt hash. The comparison
// time does not depend on where the mismatch occurs.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
