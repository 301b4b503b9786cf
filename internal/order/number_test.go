package order_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/telegram-storefront/internal/order"
)

func TestNewNumber_Format(t *testing.T) {
	now := time.Date(2025, 5, 3, 12, 4, 5, 0, time.UTC)

	number := order.NewNumber(now)

	// 2025-05-03 is day 123 of the year.
	assert.Regexp(t, regexp.MustCompile(`^123-120405-[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{4}$`), number)
}

func TestNewNumber_SuffixVaries(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[order.NewNumber(now)] = true
	}
	// 4 random characters over a 31-symbol alphabet: 50 draws colliding into
	// a single value would mean the suffix is not random at all.
	assert.Greater(t, len(seen), 1)
}
