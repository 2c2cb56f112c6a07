package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTPCode produces a random numeric code of the given length.
func GenerateOTPCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("otp length must be positive")
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// HashOTPCode returns the hex digest stored instead of the plain code.
func HashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyOTPCode compares a submitted code against a stored digest in
// constant time.
func VerifyOTPCode(code, storedDigest string) bool {
	computed := HashOTPCode(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
