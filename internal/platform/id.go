package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const codeLength = 10

func NewID() string {
	return uuid.New().String()
}

// NewCode generates a random lowercase code with the given prefix.
// Used for domain verification codes and ticket references.
func NewCode(prefix string) string {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = codeAlphabet[b[i]%byte(len(codeAlphabet))]
	}
	return prefix + string(b)
}

// NewOTP generates a numeric one-time password of the given length.
func NewOTP(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = '0' + b[i]%10
	}
	return string(b)
}
