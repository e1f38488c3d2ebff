package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextVersion(t *testing.T) {
	assert.Equal(t, int64(2), NextVersion(1, 1))
	assert.Equal(t, int64(6), NextVersion(5, 1))
	assert.Equal(t, int64(4), NextVersion(0, 3))
}
