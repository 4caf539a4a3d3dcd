package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashSessionToken derives the storable hash of a session token. The raw
// token never touches the database.
func HashSessionToken(raw, pepper string) string {
	h := sha256.Sum256([]byte(raw + ":" + pepper))
	return hex.EncodeToString(h[:])
}

// HashPin produces a bcrypt hash suitable for PIN_HASH configuration.
func HashPin(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePin checks a submitted PIN against the configured bcrypt hash.
func ComparePin(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
