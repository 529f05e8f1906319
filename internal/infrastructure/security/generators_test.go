package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLeadCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := GenerateLeadCode()
		assert.Len(t, code, LeadCodeLength)
		assert.True(t, IsLeadCode(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestFallbackLeadCode(t *testing.T) {
	assert.True(t, IsLeadCode(fallbackLeadCode()))
}

func TestIsLeadCode(t *testing.T) {
	assert.True(t, IsLeadCode("ABC234"))
	assert.False(t, IsLeadCode("abc234"))
	assert.False(t, IsLeadCode("ABC23"))
	assert.False(t, IsLeadCode("ABC0O1"))
	assert.False(t, IsLeadCode(""))
}

func TestGenerateVisitorID(t *testing.T) {
	a, b := GenerateVisitorID(), GenerateVisitorID()
	assert.True(t, strings.HasPrefix(a, "visitor_"))
	assert.NotEqual(t, a, b)
}

func TestGenerateULID(t *testing.T) {
	id := GenerateULID()
	assert.Len(t, id, 26)
	assert.NotEqual(t, id, GenerateULID())
}
