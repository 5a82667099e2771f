package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceSuffix(t *testing.T) {
	assert.Empty(t, ResourceSuffix(0))

	suffix := ResourceSuffix(12)
	assert.Len(t, suffix, 12)
	for _, c := range suffix {
		assert.True(t, strings.ContainsRune(suffixAlphabet, c), "unexpected %q in %q", c, suffix)
	}
	assert.NotEqual(t, suffix, ResourceSuffix(12))
}
