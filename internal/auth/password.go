package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords with bcrypt. The salt is
// embedded in the digest and verification cost tracks the stored cost
// factor, so the work scales independently of the caller.
type PasswordHasher struct {
	// Prehash reduces the password to a sha256 hex digest before bcrypt.
	// That sidesteps bcrypt's 72-byte input ceiling but caps useful entropy
	// at the sha256 output space. Compatibility mode only: digests written
	// with and without it do not verify against each other.
	Prehash bool
}

// Hash computes the bcrypt digest of a password
func (h PasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(h.input(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the password matches the stored digest. bcrypt's
// comparison bounds timing leakage; no additional comparison is layered on.
func (h PasswordHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), h.input(password)) == nil
}

func (h PasswordHasher) input(password string) []byte {
	if !h.Prehash {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}
