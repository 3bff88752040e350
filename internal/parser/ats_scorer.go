package parser

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"cv-intake-go/internal/types"
)

// Basic raw-text scorer weights. The checks are independent and additive, so
// the score is deterministic and monotonic in the number of satisfied rules.
const (
	weightExperienceSection = 20
	weightEducationSection  = 15
	weightSkillsSection     = 10
	weightContentLength     = 10
	weightEmail             = 10
	weightPhone             = 5
	weightQuantified        = 15
	weightTechKeywords      = 10
	weightProjectsMention   = 10

	minContentLength = 500
)

var (
	quantWords = []string{"%", "percentage", "improved", "increased", "reduced", "saved", "built", "developed"}

	techKeywords = []string{"react", "python", "javascript", "django", "mysql", "docker", "html", "css"}
)

// CalculateBasicATSScore applies the raw-text ATS rule table. Each satisfied
// rule adds its fixed weight and one human-readable feedback line; the final
// score is clamped to [0, 100].
func CalculateBasicATSScore(rawText string) *types.ATSScore {
	score := 0
	feedback := []string{}
	features := map[string]interface{}{}

	textLower := strings.ToLower(rawText)
	sectionsFound := []string{}

	if strings.Contains(textLower, "experience") || strings.Contains(textLower, "projects") || strings.Contains(textLower, "خبرة") {
		score += weightExperienceSection
		feedback = append(feedback, "✅ Has experience/projects section")
		sectionsFound = append(sectionsFound, "experience")
	} else {
		feedback = append(feedback, "❌ Missing experience section")
	}

	if strings.Contains(textLower, "education") || strings.Contains(textLower, "تعليم") || strings.Contains(textLower, "university") {
		score += weightEducationSection
		feedback = append(feedback, "✅ Has education section")
		sectionsFound = append(sectionsFound, "education")
	} else {
		feedback = append(feedback, "❌ Missing education section")
	}

	if strings.Contains(textLower, "skill") || strings.Contains(textLower, "مهارة") ||
		strings.Contains(textLower, "html") || strings.Contains(textLower, "python") {
		score += weightSkillsSection
		feedback = append(feedback, "✅ Has skills section")
		sectionsFound = append(sectionsFound, "skills")

		skillCount := strings.Count(textLower, ",") + strings.Count(textLower, "|")
		if skillCount < 1 {
			skillCount = 1
		}
		features["skills_count"] = skillCount
	} else {
		feedback = append(feedback, "❌ Missing skills section")
	}

	if len(rawText) > minContentLength {
		score += weightContentLength
		feedback = append(feedback, "✅ Has sufficient content")
		features["content_length"] = "good"
	} else {
		feedback = append(feedback, "❌ Content too short")
		features["content_length"] = "short"
	}

	hasEmail := ExtractEmail(rawText) != ""
	hasPhone := ExtractPhone(rawText) != ""

	if hasEmail {
		score += weightEmail
		feedback = append(feedback, "✅ Has email address")
	} else {
		feedback = append(feedback, "❌ Missing email address")
	}

	if hasPhone {
		score += weightPhone
		feedback = append(feedback, "✅ Has phone number")
	} else {
		feedback = append(feedback, "❌ Missing phone number")
	}

	quantCount := 0
	for _, w := range quantWords {
		if strings.Contains(textLower, w) {
			quantCount++
		}
	}
	if quantCount > 0 {
		score += weightQuantified
		feedback = append(feedback, fmt.Sprintf("✅ Has %d quantifiable achievements", quantCount))
		features["achievement_count"] = quantCount
	} else {
		feedback = append(feedback, "❌ Missing quantifiable achievements")
	}

	techFound := []string{}
	for _, tech := range techKeywords {
		if strings.Contains(textLower, tech) {
			techFound = append(techFound, tech)
		}
	}
	if len(techFound) > 0 {
		score += weightTechKeywords
		top := techFound
		if len(top) > 3 {
			top = top[:3]
		}
		feedback = append(feedback, fmt.Sprintf("✅ Mentions technologies: %s", strings.Join(top, ", ")))
		features["technologies"] = techFound
	} else {
		feedback = append(feedback, "❌ Missing technology keywords")
	}

	if strings.Contains(textLower, "project") || strings.Contains(textLower, "مشاريع") {
		score += weightProjectsMention
		feedback = append(feedback, "✅ Has projects section")
		features["has_projects"] = true
	} else {
		feedback = append(feedback, "❌ Missing projects section")
	}

	feedback = append(feedback, overallVerdict(score))

	features["raw_text_length"] = len(rawText)
	features["has_email"] = hasEmail
	features["has_phone"] = hasPhone
	features["sections_found"] = sectionsFound

	return &types.ATSScore{
		Score:    clampScore(score),
		Feedback: feedback,
		Features: features,
	}
}

// Structured scorer rule table; applied to an already parsed CV.
const (
	ruleContactInfo       = 10
	ruleWorkExperience    = 20
	ruleEducation         = 15
	ruleSkillsSection     = 10
	ruleProjects          = 15
	ruleQuantifiedResults = 15

	keywordBonusCap      = 10
	keywordBonusPerMatch = 2
)

// ScoreStructuredCV applies the richer rule table to a structured CV,
// optionally matching its skills against a job description for a keyword
// bonus. A small impact bonus is added when quantified achievements exist.
func ScoreStructuredCV(cv *types.StructuredCV, jobDescription string) *types.ATSScore {
	score := 0
	feedback := []string{}
	features := map[string]interface{}{}

	if cv == nil {
		cv = types.NewStructuredCV()
	}

	if cv.PersonalInfo.Email != "" {
		score += ruleContactInfo
		feedback = append(feedback, "✅ Has contact information")
	} else {
		feedback = append(feedback, "❌ Missing contact information")
	}

	if len(cv.Experience) > 0 {
		score += ruleWorkExperience
		feedback = append(feedback, "✅ Has work experience section")
		features["years_experience"] = estimateYearsExperience(cv.Experience)
	} else {
		feedback = append(feedback, "❌ Missing work experience section")
	}

	if len(cv.Education) > 0 {
		score += ruleEducation
		feedback = append(feedback, "✅ Has education section")
	} else {
		feedback = append(feedback, "❌ Missing education section")
	}

	if len(cv.Skills) > 0 {
		score += ruleSkillsSection
		feedback = append(feedback, "✅ Has skills section")
		features["skills_count"] = len(cv.Skills)
		top := cv.Skills
		if len(top) > 10 {
			top = top[:10]
		}
		features["key_skills"] = top
	} else {
		feedback = append(feedback, "❌ Missing skills section")
	}

	if len(cv.Projects) > 0 {
		score += ruleProjects
		feedback = append(feedback, fmt.Sprintf("✅ Has projects (%d)", len(cv.Projects)))
		features["project_count"] = len(cv.Projects)
		names := make([]string, 0, len(cv.Projects))
		for _, p := range cv.Projects {
			names = append(names, p.Title)
		}
		features["project_names"] = names
	} else {
		feedback = append(feedback, "❌ Missing projects section")
	}

	quantified := countQuantifiedAchievements(cv)
	if quantified > 0 {
		score += ruleQuantifiedResults
		feedback = append(feedback, fmt.Sprintf("✅ Has %d quantifiable achievements", quantified))
		features["achievement_count"] = quantified
	} else {
		feedback = append(feedback, "❌ Missing quantifiable achievements")
	}

	if jobDescription != "" && len(cv.Skills) > 0 {
		jobLower := strings.ToLower(jobDescription)
		matched := []string{}
		for _, skill := range cv.Skills {
			if skill != "" && strings.Contains(jobLower, strings.ToLower(skill)) {
				matched = append(matched, skill)
			}
		}
		if len(matched) > 0 {
			bonus := len(matched) * keywordBonusPerMatch
			if bonus > keywordBonusCap {
				bonus = keywordBonusCap
			}
			score += bonus
			features["keyword_matches"] = matched
			feedback = append(feedback, fmt.Sprintf("✅ Matched %d job keywords", len(matched)))
		}
	}

	if quantified > 0 {
		impact := int(math.Round(float64(score) * 0.1))
		score += impact
		features["impact_bonus"] = impact
	}

	return &types.ATSScore{
		Score:    clampScore(score),
		Feedback: feedback,
		Features: features,
	}
}

// ExtractCVFeatures summarizes a structured CV for downstream consumers
// (ranking, reporting) without scoring it.
func ExtractCVFeatures(cv *types.StructuredCV) map[string]interface{} {
	if cv == nil {
		cv = types.NewStructuredCV()
	}
	names := make([]string, 0, len(cv.Projects))
	for _, p := range cv.Projects {
		names = append(names, p.Title)
	}
	return map[string]interface{}{
		"key_skills":             cv.Skills,
		"total_years_experience": estimateYearsExperience(cv.Experience),
		"achievement_count":      countQuantifiedAchievements(cv),
		"has_education":          len(cv.Education) > 0,
		"has_certifications":     len(cv.Certifications) > 0,
		"has_languages":          len(cv.Languages) > 0,
		"project_count":          len(cv.Projects),
		"project_names":          names,
	}
}

// estimateYearsExperience is a deliberately crude heuristic: roughly one and
// a half years per listed role.
func estimateYearsExperience(experience []types.ExperienceEntry) float64 {
	return float64(len(experience)) * 1.5
}

// countQuantifiedAchievements counts achievement bullets that carry a digit.
func countQuantifiedAchievements(cv *types.StructuredCV) int {
	count := 0
	for _, exp := range cv.Experience {
		for _, a := range exp.Achievements {
			if containsDigit(a) {
				count++
			}
		}
	}
	return count
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func overallVerdict(score int) string {
	switch {
	case score >= 80:
		return "📊 Overall: Strong CV"
	case score >= 60:
		return "📊 Overall: Good CV, needs some improvements"
	default:
		return "📊 Overall: Needs significant improvements"
	}
}

func clampScore(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
