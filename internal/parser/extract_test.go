package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain address", "Contact: john.doe@example.com for details", "john.doe@example.com"},
		{"first of several", "a@one.com and b@two.org", "a@one.com"},
		{"plus and percent", "mail me at dev+cv%test@sub.example.io", "dev+cv%test@sub.example.io"},
		{"no address", "no contact information here", ""},
		{"bare at sign", "meet me at noon", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEmail(tt.text))
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"international", "Phone: +963 123 456 789", "+963 123 456 789"},
		{"dashed", "call 123-456-7890 anytime", "123-456-7890"},
		{"parenthesized area code", "(555) 123-4567", "(555) 123-4567"},
		{"no phone", "just words", ""},
		{"too short", "room 12 34", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPhone(tt.text))
		})
	}
}

func TestExtractKnownSkills(t *testing.T) {
	text := "Built services in PYTHON and docker, deployed on AWS with react frontends."
	skills := ExtractKnownSkills(text)

	// Hits come back title-cased, in vocabulary order.
	assert.Equal(t, []string{"Python", "React", "Aws", "Docker"}, skills)

	assert.Empty(t, ExtractKnownSkills("I enjoy gardening and cooking"))
}

func TestDedupeSkills(t *testing.T) {
	in := []string{"Python", "python", "PYTHON", "Go", "x", "", "FastAPI", "fastapi"}
	out := dedupeSkills(in)

	// Case-insensitive, first spelling wins, single-rune tokens dropped.
	assert.Equal(t, []string{"Python", "Go", "FastAPI"}, out)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Python", titleCase("pYTHON"))
	assert.Equal(t, "Node.Js", titleCase("node.js"))
	assert.Equal(t, "Html", titleCase("HTML"))
}
