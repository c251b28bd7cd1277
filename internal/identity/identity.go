package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// displayHashLen is the number of hash characters shown instead of the plain pseudonym.
const displayHashLen = 10

// HashPseudonym maps a pseudonym to its stable storage key (unsalted SHA-256
// hex). The hash is intentionally deterministic so the same pseudonym resumes
// the same progress across sessions.
func HashPseudonym(pseudonym string) string {
	sum := sha256.Sum256([]byte(pseudonym))
	return hex.EncodeToString(sum[:])
}

// DisplayHash returns the truncated hash prefix used in derived views.
func DisplayHash(userHash string) string {
	if len(userHash) <= displayHashLen {
		return userHash
	}
	return userHash[:displayHashLen]
}

// IsAdminUser reports whether the pseudonym matches the configured admin name.
func IsAdminUser(pseudonym, adminUser string) bool {
	if adminUser == "" {
		return false
	}
	return strings.EqualFold(pseudonym, adminUser)
}

// CheckAdminKey compares the provided shared secret in constant time.
// An unconfigured or empty key never authenticates.
func CheckAdminKey(provided, configured string) bool {
	if provided == "" || configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}
