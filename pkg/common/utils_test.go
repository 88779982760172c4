package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCutUUIDString(t *testing.T) {
	a, b := NewCutUUIDString(), NewCutUUIDString()
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestSHA256HexString(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256HexString(nil))
}

func TestMustGetJSONString(t *testing.T) {
	assert.Equal(t, "{}", MustGetJSONString(nil))
	assert.Equal(t, `{"a":1}`, MustGetJSONString(map[string]int{"a": 1}))
	assert.Equal(t, "{}", MustGetJSONString(func() {}))
}
