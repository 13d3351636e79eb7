package store

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^OS240309\d{4}$`)

	for i := 0; i < 100; i++ {
		number := GenerateOrderNumber(now)
		assert.Regexp(t, pattern, number)
		assert.Len(t, number, 12)
	}
}

func TestGenerateOrderNumberVaries(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[GenerateOrderNumber(now)] = true
	}
	// 4 random digits across 200 draws should produce plenty of distinct values
	assert.Greater(t, len(seen), 100)
}
