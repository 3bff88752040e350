package parser

import (
	"strings"

	"cv-intake-go/internal/types"
)

// SimpleCVParser is the strict tier of the dispatcher: it only understands
// "Key: value" labeled lines (English and Arabic key synonyms) plus short
// section-local continuation rules. Professionally labeled CVs are common
// and this parse is exact for them; anything less regular falls through to
// the loose heuristic parser.
type SimpleCVParser struct{}

// NewSimpleCVParser creates the strict parser.
func NewSimpleCVParser() *SimpleCVParser {
	return &SimpleCVParser{}
}

// strict continuation sections
const (
	simpleSectionNone       = ""
	simpleSectionSkills     = "skills"
	simpleSectionProjects   = "projects"
	simpleSectionExperience = "experience"
	simpleSectionEducation  = "education"
)

// Parse runs the strict labeled-line parse. It never fails; unrecognized
// lines are simply skipped.
func (p *SimpleCVParser) Parse(rawText string) *types.StructuredCV {
	cv := types.NewStructuredCV()
	lines := splitLines(rawText)

	section := simpleSectionNone

	for _, line := range lines {
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "name:") || strings.Contains(line, "الاسم:"):
			cv.PersonalInfo.FullName = afterColonOrWhole(line)

		case strings.Contains(lower, "email:") || strings.Contains(line, "@"):
			cv.PersonalInfo.Email = afterColonOrWhole(line)

		case strings.Contains(lower, "phone:") || strings.Contains(line, "هاتف:"):
			cv.PersonalInfo.Phone = afterColonOrWhole(line)

		case strings.Contains(lower, "skills:") || strings.Contains(line, "مهارات:"):
			if value := afterColon(line); value != "" {
				for _, s := range strings.Split(value, ",") {
					if s = strings.TrimSpace(s); s != "" {
						cv.Skills = append(cv.Skills, s)
					}
				}
			}
			section = simpleSectionSkills
			continue

		case strings.Contains(lower, "projects:") || strings.Contains(line, "مشاريع:"):
			if value := afterColon(line); value != "" {
				for _, item := range splitList(value) {
					cv.Projects = append(cv.Projects, types.ProjectEntry{
						Title:        item,
						Technologies: []string{},
						Achievements: []string{},
					})
				}
			}
			section = simpleSectionProjects
			continue

		case strings.Contains(lower, "experience:") || strings.Contains(line, "خبرة:"):
			section = simpleSectionExperience
			continue

		case strings.Contains(lower, "education:") || strings.Contains(line, "تعليم:"):
			if value := afterColon(line); value != "" {
				cv.Education = append(cv.Education, types.EducationEntry{Institution: value})
			}
			section = simpleSectionEducation
			continue
		}

		// Labeled name/email/phone lines intentionally fall through to the
		// section continuation below, mirroring how downstream consumers
		// have always seen such lines inside an open section.
		switch section {
		case simpleSectionSkills:
			if containsOtherSectionWord(lower, "experience", "education", "languages", "certifications") {
				section = simpleSectionNone
				continue
			}
			for _, s := range strings.Split(line, ",") {
				if s = strings.TrimSpace(s); s != "" {
					cv.Skills = append(cv.Skills, s)
				}
			}

		case simpleSectionProjects:
			p.consumeProjectLine(cv, line, lower, &section)

		case simpleSectionExperience:
			p.consumeExperienceLine(cv, line, lower, &section)

		case simpleSectionEducation:
			if containsOtherSectionWord(lower, "experience", "skills", "languages", "certifications") {
				section = simpleSectionNone
				continue
			}
			if len(cv.Education) > 0 {
				last := &cv.Education[len(cv.Education)-1]
				if strings.Contains(lower, "degree") || strings.Contains(lower, "major") {
					last.Degree = line
				} else {
					last.Duration = line
				}
			} else {
				cv.Education = append(cv.Education, types.EducationEntry{Institution: line})
			}
		}
	}

	return cv
}

func (p *SimpleCVParser) consumeProjectLine(cv *types.StructuredCV, line, lower string, section *string) {
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
		content := strings.TrimSpace(strings.TrimLeft(line, "-•"))
		if content == "" {
			return
		}
		title, description := splitTitleDescription(content)
		proj := types.ProjectEntry{
			Title:        title,
			Description:  description,
			Technologies: []string{},
			Achievements: []string{},
		}
		// Inline technology list in the same bullet.
		if loc := techMarkerRegex.FindStringIndex(proj.Description); loc != nil {
			techPart := proj.Description[loc[1]:]
			proj.Description = strings.TrimRight(strings.TrimSpace(proj.Description[:loc[0]]), " -:")
			proj.Technologies = append(proj.Technologies, splitList(techPart)...)
		}
		cv.Projects = append(cv.Projects, proj)
		return
	}

	if len(cv.Projects) == 0 {
		*section = simpleSectionNone
		return
	}
	last := &cv.Projects[len(cv.Projects)-1]
	if isTechLine(lower) {
		part := line
		if idx := strings.Index(line, ":"); idx >= 0 {
			part = line[idx+1:]
		}
		last.Technologies = append(last.Technologies, splitList(part)...)
		return
	}
	if last.Description != "" {
		last.Description += " " + line
	} else {
		last.Description = line
	}
}

func (p *SimpleCVParser) consumeExperienceLine(cv *types.StructuredCV, line, lower string, section *string) {
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
		content := strings.TrimSpace(strings.TrimLeft(line, "-•"))
		if content == "" {
			return
		}
		if strings.Contains(strings.ToLower(content), " at ") {
			position, company := splitPositionCompany(content)
			if n := len(cv.Experience); n > 0 && cv.Experience[n-1].Position == "" {
				cv.Experience[n-1].Position = position
				cv.Experience[n-1].Company = company
			} else {
				cv.Experience = append(cv.Experience, types.ExperienceEntry{
					Position:     position,
					Company:      company,
					Achievements: []string{},
				})
			}
			return
		}
		if n := len(cv.Experience); n > 0 {
			cv.Experience[n-1].Achievements = append(cv.Experience[n-1].Achievements, content)
		} else {
			cv.Experience = append(cv.Experience, types.ExperienceEntry{
				Description:  content,
				Achievements: []string{},
			})
		}
		return
	}

	if containsOtherSectionWord(lower, "experience", "education", "languages", "certifications", "skills") {
		*section = simpleSectionNone
		return
	}
	if strings.Contains(lower, " at ") {
		position, company := splitPositionCompany(line)
		cv.Experience = append(cv.Experience, types.ExperienceEntry{
			Position:     position,
			Company:      company,
			Achievements: []string{},
		})
		return
	}
	cv.Experience = append(cv.Experience, types.ExperienceEntry{
		Position:     line,
		Achievements: []string{},
	})
}

func afterColon(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

func afterColonOrWhole(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return strings.TrimSpace(line)
}

func containsOtherSectionWord(lower string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
