package parser

import (
	"regexp"
	"strings"
)

// Field extractors scan the whole raw text, independent of any section
// state. They are pure functions: first match wins, empty string when
// nothing matches.

var (
	emailRegex = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Lenient phone shape: optional +country code, then 3-4 digit groups
	// separated by spaces, dots, dashes or parentheses. Nine significant
	// digits minimum.
	phoneRegex = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{3,4}`)
)

// ExtractEmail returns the first email address found in text, or "".
func ExtractEmail(text string) string {
	return emailRegex.FindString(text)
}

// ExtractPhone returns the first phone-number-shaped token found in text,
// or "".
func ExtractPhone(text string) string {
	return strings.TrimSpace(phoneRegex.FindString(text))
}

// knownSkills is the flat vocabulary used when no skills section could be
// located: any of these appearing anywhere in the text counts as a skill.
var knownSkills = []string{
	"python", "java", "javascript", "typescript", "react", "vue", "angular",
	"sql", "mysql", "postgresql", "mongodb", "redis",
	"aws", "docker", "kubernetes", "linux", "git",
	"html", "css", "django", "flask", "fastapi", "node.js", "go",
}

// ExtractKnownSkills scans the whole text for known skill tokens and returns
// the hits title-cased, in vocabulary order.
func ExtractKnownSkills(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, skill := range knownSkills {
		if strings.Contains(lower, skill) {
			found = append(found, titleCase(skill))
		}
	}
	return found
}

// titleCase upper-cases the first letter of every letter run and lower-cases
// the rest ("pYTHON" -> "Python", "node.js" -> "Node.Js"). Used only when a
// skill is synthesized from prose; tokens the candidate typed themselves are
// kept verbatim.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		switch {
		case !isLetter:
			b.WriteRune(r)
			startOfWord = true
		case startOfWord:
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
			startOfWord = false
		default:
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupeSkills removes duplicates case-insensitively, keeping the first
// spelling seen and dropping tokens of length <= 1. Insertion order of the
// survivors is preserved.
func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := []string{}
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if len(s) <= 1 {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
