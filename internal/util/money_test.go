package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.0, RoundMoney(10))
	assert.Equal(t, 10.55, RoundMoney(10.554))
	assert.Equal(t, 10.56, RoundMoney(10.556))
	assert.Equal(t, 0.1, RoundMoney(0.1+0.2-0.2))
	assert.Equal(t, 3350.48, RoundMoney(1499.99*2+350.50))
	assert.Equal(t, -2.34, RoundMoney(-2.344))
}
