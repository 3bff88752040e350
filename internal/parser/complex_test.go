package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sectionedCV = `Sara Haddad
sara@example.com
+963 998 877 665
Location: Damascus, Syria
Experience
- Backend Developer at TechCorp
- Built REST APIs in Go
- Reduced latency by 30%
Education
Damascus University
Degree: Computer Science
2020 - 2024
Skills
Python, Go, PostgreSQL
Projects
- Chat App - Realtime messaging - Technologies: Go, Redis
Languages
Arabic: Native
English`

func TestComplexParser_FullSectionedCV(t *testing.T) {
	cv := NewComplexCVParser().Parse(sectionedCV)

	assert.Equal(t, "Sara Haddad", cv.PersonalInfo.FullName)
	assert.Equal(t, "sara@example.com", cv.PersonalInfo.Email)
	assert.Equal(t, "+963 998 877 665", cv.PersonalInfo.Phone)
	assert.Equal(t, "Damascus, Syria", cv.PersonalInfo.Location)

	require.Len(t, cv.Experience, 1)
	exp := cv.Experience[0]
	assert.Equal(t, "Backend Developer", exp.Position)
	assert.Equal(t, "TechCorp", exp.Company)
	assert.Equal(t, []string{"Built REST APIs in Go", "Reduced latency by 30%"}, exp.Achievements)

	require.Len(t, cv.Education, 1)
	edu := cv.Education[0]
	assert.Equal(t, "Damascus University", edu.Institution)
	assert.Equal(t, "Computer Science", edu.Degree)
	assert.Equal(t, "2020 - 2024", edu.Duration)

	assert.Equal(t, []string{"Python", "Go", "PostgreSQL"}, cv.Skills)

	require.Len(t, cv.Projects, 1)
	proj := cv.Projects[0]
	assert.Equal(t, "Chat App", proj.Title)
	assert.Equal(t, "Realtime messaging", proj.Description)
	assert.Equal(t, []string{"Go", "Redis"}, proj.Technologies)

	assert.Equal(t, []string{"Native", "English"}, cv.Languages)
}

func TestComplexParser_NameHintTakesNextLine(t *testing.T) {
	// A line carrying a name hint makes the following line the name.
	cv := NewComplexCVParser().Parse("Name\nOmar Saleh\nomar@example.com")
	assert.Equal(t, "Omar Saleh", cv.PersonalInfo.FullName)
}

func TestComplexParser_NameFallsBackToFirstMultiWordLine(t *testing.T) {
	cv := NewComplexCVParser().Parse("sara@example.com\nSara Haddad\nBackend developer")
	assert.Equal(t, "Sara Haddad", cv.PersonalInfo.FullName)
}

func TestComplexParser_BulletGlyphsNormalized(t *testing.T) {
	raw := "Sara Haddad\nExperience\n• Backend Developer at TechCorp\n• Shipped v2"
	cv := NewComplexCVParser().Parse(raw)

	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "Backend Developer", cv.Experience[0].Position)
	assert.Equal(t, []string{"Shipped v2"}, cv.Experience[0].Achievements)
}

func TestComplexParser_InvisibleArtifactsStripped(t *testing.T) {
	// Copy-pasted CV text often carries a BOM, zero-width spaces and NBSPs.
	raw := "\uFEFFSara Haddad\nExperience\n• Backend​ Developer at TechCorp"
	cv := NewComplexCVParser().Parse(raw)

	assert.Equal(t, "Sara Haddad", cv.PersonalInfo.FullName)
	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "Backend Developer", cv.Experience[0].Position)
}

func TestComplexParser_ExperienceWithoutPositionIsDropped(t *testing.T) {
	// A bullet run with no recoverable position never becomes a record.
	raw := "Experience\n- shipped features\n- fixed bugs"
	cv := NewComplexCVParser().Parse(raw)
	assert.Empty(t, cv.Experience)
}

func TestComplexParser_ProseKeywordSwitchesSection(t *testing.T) {
	// A non-bulleted prose line that mentions another section's keyword is
	// taken as that section's header. This is intentional long-standing
	// behavior: here the trailing skill line lands in experience instead.
	raw := "Skills\nPython, Django\nYears of experience with databases\nMySQL"
	cv := NewComplexCVParser().Parse(raw)

	assert.Equal(t, []string{"Python", "Django"}, cv.Skills)
	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "MySQL", cv.Experience[0].Position)
}

func TestComplexParser_BulletedLineNeverReopensSection(t *testing.T) {
	// "university" is an education keyword, but a bulleted line inside an
	// open section is content, not a header.
	raw := "Experience\n- Backend Developer at TechCorp\n- Maintained university portal"
	cv := NewComplexCVParser().Parse(raw)

	require.Len(t, cv.Experience, 1)
	assert.Equal(t, []string{"Maintained university portal"}, cv.Experience[0].Achievements)
	assert.Empty(t, cv.Education)
}

func TestComplexParser_TechLineStaysWithOpenProject(t *testing.T) {
	// "Technologies" is a skills keyword, but directly under an open project
	// bullet it is that project's technology list.
	raw := "Projects\n- Chat App - Realtime messaging\nTechnologies: Go, Redis"
	cv := NewComplexCVParser().Parse(raw)

	require.Len(t, cv.Projects, 1)
	assert.Equal(t, []string{"Go", "Redis"}, cv.Projects[0].Technologies)
	// No skills section existed, so the known-vocabulary scan fills skills
	// from the raw text.
	assert.Equal(t, []string{"Redis", "Go"}, cv.Skills)
}

func TestComplexParser_SkillsFallBackToKnownVocabulary(t *testing.T) {
	raw := "Sara Haddad\nWrote services in python and deployed them with docker."
	cv := NewComplexCVParser().Parse(raw)

	assert.Equal(t, []string{"Python", "Docker"}, cv.Skills)
}

func TestComplexParser_SkillsDeduplicated(t *testing.T) {
	raw := "Skills\nPython, python, PYTHON, Go, x"
	cv := NewComplexCVParser().Parse(raw)

	assert.Equal(t, []string{"Python", "Go"}, cv.Skills)
}

func TestComplexParser_LanguagesRules(t *testing.T) {
	longLine := strings.Repeat("x", 60)
	raw := "Languages\nArabic: Native\nEnglish\n" + longLine
	cv := NewComplexCVParser().Parse(raw)

	// Colon lines contribute the value, short bare lines pass verbatim,
	// long bare lines are ignored.
	assert.Equal(t, []string{"Native", "English"}, cv.Languages)
}

func TestComplexParser_CustomKeywordTable(t *testing.T) {
	table := DefaultKeywords.Clone()
	table[SectionSkills] = append(table[SectionSkills], "compétences")

	cv := NewComplexCVParser(WithKeywords(table)).Parse("Compétences\nGo, Rust")
	assert.Equal(t, []string{"Go", "Rust"}, cv.Skills)
}
