package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShareCache_PutReturnsPrevious(t *testing.T) {
	c := newShareCache()

	_, ok := c.Put(1, 100)
	assert.False(t, ok)

	prev, ok := c.Put(1, 200)
	assert.True(t, ok)
	assert.Equal(t, 100, prev)
}

func TestShareCache_TakeConsumesEntry(t *testing.T) {
	c := newShareCache()
	c.Put(1, 100)

	id, ok := c.Take(1)
	assert.True(t, ok)
	assert.Equal(t, 100, id)

	_, ok = c.Take(1)
	assert.False(t, ok)
}

func TestShareCache_UsersAreIndependent(t *testing.T) {
	c := newShareCache()
	c.Put(1, 100)
	c.Put(2, 200)

	id, ok := c.Take(1)
	assert.True(t, ok)
	assert.Equal(t, 100, id)

	id, ok = c.Take(2)
	assert.True(t, ok)
	assert.Equal(t, 200, id)
}
