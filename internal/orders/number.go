package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// base32 alphabet used for the order-number suffix.
const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// NewOrderNumber generates a merchant-facing order number of the form
// SW-<YYYYMMDD>-<6 random base32 chars>. The number is independent of
// the storage key: it is the value handed to the payment gateway and is
// never reused (the unique index backstops the random suffix).
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("SW-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}
