package order

import (
	"fmt"
	"math/rand"
	"time"
)

// Lookalike characters (0/O, 1/I/L) are left out: order numbers get read
// aloud over the phone.
const numberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewNumber builds a human-readable order number: day of year, second-level
// timestamp, and a 4-character random suffix. Uniqueness is enforced by the
// database; the suffix keeps same-second collisions negligible.
func NewNumber(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = numberAlphabet[rand.Intn(len(numberAlphabet))]
	}
	return fmt.Sprintf("%03d-%s-%s", now.YearDay(), now.Format("150405"), suffix)
}
