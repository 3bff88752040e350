package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labeledCV = `Name: Jane Doe
Email: jane.doe@example.com
Phone: +1 555 123 4567
Skills: Python, FastAPI, Docker
Experience:
- Software Engineer at ExampleCo
- Improved pipeline throughput by 40%
Projects:
- CV Analyzer - Heuristic resume analyzer - Technologies: Python, FastAPI
- Deploy Bot - Release automation - Technologies: Docker
Education: Example University
Bachelor degree in Computer Science`

func TestStructureCV_LabeledCVUsesStrictTier(t *testing.T) {
	cv := StructureCVFallback(labeledCV)
	require.NotNil(t, cv)

	assert.Equal(t, "Jane Doe", cv.PersonalInfo.FullName)
	assert.Equal(t, "jane.doe@example.com", cv.PersonalInfo.Email)
	assert.Equal(t, "+1 555 123 4567", cv.PersonalInfo.Phone)

	// Strict tier keeps typed skill tokens untouched.
	assert.Equal(t, []string{"Python", "FastAPI", "Docker"}, cv.Skills)

	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "Software Engineer", cv.Experience[0].Position)
	assert.Equal(t, "ExampleCo", cv.Experience[0].Company)
	assert.Equal(t, []string{"Improved pipeline throughput by 40%"}, cv.Experience[0].Achievements)

	require.Len(t, cv.Projects, 2)
	assert.Equal(t, "CV Analyzer", cv.Projects[0].Title)
	assert.Equal(t, []string{"Python", "FastAPI"}, cv.Projects[0].Technologies)
	assert.Equal(t, "Deploy Bot", cv.Projects[1].Title)
	assert.Equal(t, []string{"Docker"}, cv.Projects[1].Technologies)

	require.Len(t, cv.Education, 1)
	assert.Equal(t, "Example University", cv.Education[0].Institution)
	assert.Equal(t, "Bachelor degree in Computer Science", cv.Education[0].Degree)
}

func TestStructureCV_SelectionRule(t *testing.T) {
	// Identity alone is not enough for the strict tier; it also needs
	// experience or skills.
	cv := StructureCVFallback("Name: Bob\nJust some prose about a career")
	assert.NotNil(t, cv)
	// The loose tier took over: its name heuristic reads the line after a
	// "name" hint.
	assert.Equal(t, "Just some prose about a career", cv.PersonalInfo.FullName)

	// Identity plus skills keeps the strict tier, verbatim tokens included.
	cv = StructureCVFallback("Name: Bob\nSkills: X, Y, Z")
	assert.Equal(t, "Bob", cv.PersonalInfo.FullName)
	assert.Equal(t, []string{"X", "Y", "Z"}, cv.Skills)
}

func TestStructureCV_UnlabeledCVUsesLooseTier(t *testing.T) {
	cv := StructureCVFallback(sectionedCV)
	require.NotNil(t, cv)

	assert.Equal(t, "Sara Haddad", cv.PersonalInfo.FullName)
	assert.Equal(t, "Damascus, Syria", cv.PersonalInfo.Location)
	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "Backend Developer", cv.Experience[0].Position)
	assert.Equal(t, []string{"Python", "Go", "PostgreSQL"}, cv.Skills)
}

func TestStructureCV_ContactMergedFromExtractors(t *testing.T) {
	// The strict tier never looked at the bare phone line; the universal
	// extractor still recovers it.
	cv := StructureCVFallback("Name: Bob\n555 123 4567\nSkills: Go, Python")
	assert.Equal(t, "555 123 4567", cv.PersonalInfo.Phone)
}

func TestStructureCV_NeverPanicsAndShapeIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"\x00\xff\xfe garbage \x01",
		"-\n-\n-\n-",
		strings.Repeat("a", 100_000),
		"Experience\nEducation\nSkills\nProjects\nLanguages",
		"::::\n@@@@\n,,,,",
	}

	for _, in := range inputs {
		cv := StructureCVFallback(in)
		require.NotNil(t, cv)
		assert.NotNil(t, cv.Education)
		assert.NotNil(t, cv.Experience)
		assert.NotNil(t, cv.Skills)
		assert.NotNil(t, cv.Projects)
		assert.NotNil(t, cv.Certifications)
		assert.NotNil(t, cv.Languages)
	}
}

func TestMinimalStructure(t *testing.T) {
	long := strings.Repeat("x", 600)
	cv := MinimalStructure(long)
	assert.Equal(t, strings.Repeat("x", 500)+"...", cv.PersonalInfo.Summary)

	short := "could not parse this"
	assert.Equal(t, short, MinimalStructure(short).PersonalInfo.Summary)

	// Excerpt truncation counts runes, not bytes.
	arabic := strings.Repeat("م", 600)
	got := MinimalStructure(arabic).PersonalInfo.Summary
	assert.Equal(t, strings.Repeat("م", 500)+"...", got)
}

func TestParseSimpleCV_ExposesStrictTier(t *testing.T) {
	cv := ParseSimpleCV("Just some prose about a career")
	require.NotNil(t, cv)
	assert.Equal(t, "", cv.PersonalInfo.FullName)
	assert.Empty(t, cv.Skills)
}
