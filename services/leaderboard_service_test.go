package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedalForRank(t *testing.T) {
	assert.Equal(t, "gold", MedalForRank(1))
	assert.Equal(t, "silver", MedalForRank(2))
	assert.Equal(t, "bronze", MedalForRank(3))
	assert.Equal(t, "", MedalForRank(4))
	assert.Equal(t, "", MedalForRank(100))
	assert.Equal(t, "", MedalForRank(0))
}

func TestNormalizePaging(t *testing.T) {
	page, limit := normalizePaging(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, limit)

	page, limit = normalizePaging(-5, -1)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, limit)

	page, limit = normalizePaging(3, 25)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)

	// Oversized limits fall back to the default rather than clamping to max.
	page, limit = normalizePaging(1, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, limit)
}
