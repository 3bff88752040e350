package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength is the default cap for span attribute values.
	DefaultMaxLength = 200

	// MaxSQLLength caps recorded SQL statements.
	MaxSQLLength = 500

	// MaxRedisLength caps recorded Redis keys.
	MaxRedisLength = 100

	// MaxCVLength caps recorded CV text fragments.
	MaxCVLength = 150
)

// maskPIILookup lists attribute-name fragments whose values must be masked.
// CVs are dense with personal data, so the list is bilingual like the
// parser's keyword tables.
var maskPIILookup = map[string]bool{
	"email":    true,
	"phone":    true,
	"password": true,
	"address":  true,
	"name":     true,
	"age":      true,
	"secret":   true,
	"token":    true,
	"اسم":      true,
	"هاتف":     true,
	"عنوان":    true,
}

// SafeAttributeValue returns a trace-safe version of value: masked when the
// attribute name suggests personal data, truncated when over maxLength.
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII masks a personal value, keeping just enough of the edges for
// correlation during debugging.
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// "jane@example.com" -> "ja************om"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString shortens s to maxLength runes, keeping head and tail with
// an ellipsis between.
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}

	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL truncates a SQL statement for span recording.
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey truncates a Redis key for span recording.
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeCVContent truncates CV text for span recording.
func SafeCVContent(content string) string {
	return TruncateString(content, MaxCVLength)
}
