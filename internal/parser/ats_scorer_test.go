package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-intake-go/internal/types"
)

func TestCalculateBasicATSScore_EmptyText(t *testing.T) {
	result := CalculateBasicATSScore("")
	require.NotNil(t, result)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, "📊 Overall: Needs significant improvements", result.Feedback[len(result.Feedback)-1])
	assert.Equal(t, false, result.Features["has_email"])
	assert.Equal(t, false, result.Features["has_phone"])
	assert.Equal(t, "short", result.Features["content_length"])
	assert.Empty(t, result.Features["sections_found"])
}

func TestCalculateBasicATSScore_RichCVClampsAt100(t *testing.T) {
	raw := strings.Join([]string{
		"Jane Doe",
		"jane@example.com | +1 555 123 4567",
		"Experience: built and developed services, improved throughput by 40%",
		"Education: Example University",
		"Skills: python, react, docker, mysql",
		"Projects: several shipped products",
		strings.Repeat("filler text about delivery and ownership ", 15),
	}, "\n")

	result := CalculateBasicATSScore(raw)

	// Every rule fires: 20+15+10+10+10+5+15+10+10 = 105, clamped.
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, "📊 Overall: Strong CV", result.Feedback[len(result.Feedback)-1])
	assert.Equal(t, true, result.Features["has_email"])
	assert.Equal(t, true, result.Features["has_phone"])
	assert.Equal(t, "good", result.Features["content_length"])
	assert.ElementsMatch(t, []string{"experience", "education", "skills"}, result.Features["sections_found"])
	assert.Contains(t, result.Feedback, "✅ Has experience/projects section")
}

func TestCalculateBasicATSScore_Monotonic(t *testing.T) {
	base := "Some short introduction text"
	withEmail := base + "\njane@example.com"
	withMore := withEmail + "\nEducation: Example University"

	s1 := CalculateBasicATSScore(base).Score
	s2 := CalculateBasicATSScore(withEmail).Score
	s3 := CalculateBasicATSScore(withMore).Score

	assert.GreaterOrEqual(t, s2, s1)
	assert.GreaterOrEqual(t, s3, s2)
}

func TestCalculateBasicATSScore_ArabicSections(t *testing.T) {
	result := CalculateBasicATSScore("خبرة عملية\nتعليم جامعي\nمهارة البرمجة")

	assert.Contains(t, result.Feedback, "✅ Has experience/projects section")
	assert.Contains(t, result.Feedback, "✅ Has education section")
	assert.Contains(t, result.Feedback, "✅ Has skills section")
}

func buildScoredCV() *types.StructuredCV {
	cv := types.NewStructuredCV()
	cv.PersonalInfo.Email = "jane@example.com"
	cv.Experience = []types.ExperienceEntry{
		{Position: "Engineer", Company: "ExampleCo", Achievements: []string{"Cut costs by 30%"}},
		{Position: "Developer", Company: "Initech", Achievements: []string{"Maintained services"}},
	}
	cv.Education = []types.EducationEntry{{Institution: "Example University"}}
	cv.Skills = []string{"Go", "Redis"}
	cv.Projects = []types.ProjectEntry{{Title: "Chat App"}}
	return cv
}

func TestScoreStructuredCV_FullCV(t *testing.T) {
	result := ScoreStructuredCV(buildScoredCV(), "")
	require.NotNil(t, result)

	// 10+20+15+10+15+15 = 85, plus round(8.5) impact bonus.
	assert.Equal(t, 94, result.Score)
	assert.Equal(t, 1, result.Features["achievement_count"])
	assert.Equal(t, 3.0, result.Features["years_experience"])
	assert.Equal(t, 2, result.Features["skills_count"])
	assert.Equal(t, 1, result.Features["project_count"])
}

func TestScoreStructuredCV_JobKeywordBonus(t *testing.T) {
	result := ScoreStructuredCV(buildScoredCV(), "Looking for Go and Redis engineers")

	// 85 base, +4 for two matched keywords, +round(8.9) impact bonus.
	assert.Equal(t, 98, result.Score)
	assert.ElementsMatch(t, []string{"Go", "Redis"}, result.Features["keyword_matches"])
}

func TestScoreStructuredCV_EmptyCV(t *testing.T) {
	result := ScoreStructuredCV(types.NewStructuredCV(), "")
	assert.Equal(t, 0, result.Score)

	// A nil CV behaves like an empty one.
	result = ScoreStructuredCV(nil, "ignored")
	assert.Equal(t, 0, result.Score)
}

func TestExtractCVFeatures(t *testing.T) {
	features := ExtractCVFeatures(buildScoredCV())

	assert.Equal(t, 3.0, features["total_years_experience"])
	assert.Equal(t, 1, features["achievement_count"])
	assert.Equal(t, true, features["has_education"])
	assert.Equal(t, false, features["has_certifications"])
	assert.Equal(t, []string{"Chat App"}, features["project_names"])
}
