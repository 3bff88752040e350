package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "a*", MaskPII("ab"))
	assert.Equal(t, "a**d", MaskPII("abcd"))
	assert.Equal(t, "ja************om", MaskPII("jane@example.com"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	long := "0123456789abcdefghij"
	got := TruncateString(long, 11)
	assert.Len(t, []rune(got), 11)
	assert.Contains(t, got, "...")
	assert.Equal(t, "0123", got[:4])
}

func TestSafeAttributeValue(t *testing.T) {
	// attribute names that suggest personal data are masked, not truncated
	masked := SafeAttributeValue("candidate.email", "jane@example.com", DefaultMaxLength)
	assert.Equal(t, "ja************om", masked)

	kept := SafeAttributeValue("db.statement", "SELECT 1", DefaultMaxLength)
	assert.Equal(t, "SELECT 1", kept)
}
