package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"cv-intake-go/internal/types"
)

// ComplexCVParser is the loose heuristic parser: a single-pass line scanner
// that segments the text into sections by keyword and accumulates nested
// records with section-local continuation rules. It is the fallback for CVs
// that carry no "Key: value" labeling.
type ComplexCVParser struct {
	keywords KeywordTable
}

// ComplexOption configures a ComplexCVParser.
type ComplexOption func(*ComplexCVParser)

// WithKeywords replaces the default bilingual keyword table.
func WithKeywords(table KeywordTable) ComplexOption {
	return func(p *ComplexCVParser) {
		p.keywords = table
	}
}

// NewComplexCVParser creates the loose parser with the default keyword table.
func NewComplexCVParser(opts ...ComplexOption) *ComplexCVParser {
	p := &ComplexCVParser{keywords: DefaultKeywords}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open records: one partially-built entry per section, flushed to the output
// list when its start-marker condition next triggers, at section end, or at
// end of input. The tagged struct per section keeps each flush rule touching
// only its own shape.

type openExperience struct {
	position     string
	company      string
	description  string
	achievements []string
}

type openEducation struct {
	institution string
	degree      string
	duration    string
}

type openProject struct {
	title        string
	description  string
	technologies []string
	achievements []string
}

var (
	listSplitRegex = regexp.MustCompile(`[,;|]`)

	// Inline technology marker inside a project description, e.g.
	// "Built an app - Technologies: Python, Flask". Longest alternative
	// first so "technologies" is not clipped to "tech".
	techMarkerRegex = regexp.MustCompile(`(?i)(technologies|tools|tech)[:\s-]*`)

	// The loose education rule only recognizes recent literal year tokens.
	yearTokens = []string{"2020", "2021", "2022", "2023", "2024"}

	// Hints that the following (or same) line carries the candidate name or
	// location. Inherited vocabulary, bilingual like the section table.
	nameHints     = []string{"name", "اسم", "mohammed", "ahmed", "ali"}
	locationHints = []string{"damascus", "دمشق", "riyadh", "الرياض", "location", "موقع"}
)

// Parse runs the full heuristic pass over the raw text. It always returns a
// complete StructuredCV; lines it cannot place are dropped, never fatal.
func (p *ComplexCVParser) Parse(rawText string) *types.StructuredCV {
	cv := types.NewStructuredCV()

	lines := splitLines(normalizeBullets(rawText))

	cv.PersonalInfo.Email = ExtractEmail(rawText)
	cv.PersonalInfo.Phone = ExtractPhone(rawText)
	cv.PersonalInfo.FullName = p.findFullName(lines)
	cv.PersonalInfo.Location = p.findLocation(lines)

	section := SectionNone
	var curExp *openExperience
	var curEdu *openEducation
	var curProj *openProject

	flushExperience := func() {
		// Records with no recoverable position are dropped deliberately:
		// a bare description row is noise, not a job entry.
		if curExp != nil && curExp.position != "" {
			cv.Experience = append(cv.Experience, types.ExperienceEntry{
				Position:     curExp.position,
				Company:      curExp.company,
				Description:  curExp.description,
				Achievements: append([]string{}, curExp.achievements...),
			})
		}
		curExp = nil
	}
	flushEducation := func() {
		if curEdu != nil {
			cv.Education = append(cv.Education, types.EducationEntry{
				Institution: curEdu.institution,
				Degree:      curEdu.degree,
				Duration:    curEdu.duration,
			})
		}
		curEdu = nil
	}
	flushProject := func() {
		if curProj != nil && curProj.title != "" {
			cv.Projects = append(cv.Projects, types.ProjectEntry{
				Title:        curProj.title,
				Description:  curProj.description,
				Technologies: append([]string{}, curProj.technologies...),
				Achievements: append([]string{}, curProj.achievements...),
			})
		}
		curProj = nil
	}
	flushAll := func() {
		flushExperience()
		flushEducation()
		flushProject()
	}

	for _, line := range lines {
		lower := strings.ToLower(line)
		bulleted := strings.HasPrefix(line, "-")

		if hit := p.keywords.Match(lower); hit != SectionNone {
			// A bulleted content line inside a section never re-opens a
			// section, and neither does a technology list attached to an
			// open project. Everything else containing a section keyword is
			// taken as a header. This tie-break is best-effort: a prose
			// line that merely mentions "experience" still switches
			// sections, matching the long-standing behavior downstream
			// callers see. See DESIGN.md.
			continuation := (bulleted && section != SectionNone) ||
				(section == SectionProjects && curProj != nil && isTechLine(lower))
			if !continuation {
				if hit != section {
					flushAll()
					section = hit
					continue
				}
				// Same-section keyword: education and experience own rules
				// for these lines (institutions contain "university", job
				// rows contain "work"), so they fall through. For the rest
				// it is a repeated header and is consumed.
				if section != SectionEducation && section != SectionExperience {
					flushAll()
					continue
				}
			}
		}

		switch section {
		case SectionExperience:
			p.consumeExperienceLine(line, lower, bulleted, &curExp, flushExperience)
		case SectionEducation:
			p.consumeEducationLine(line, lower, bulleted, &curEdu, flushEducation)
		case SectionSkills:
			if !bulleted {
				for _, token := range listSplitRegex.Split(line, -1) {
					token = strings.TrimSpace(token)
					if len(token) > 1 {
						cv.Skills = append(cv.Skills, token)
					}
				}
			}
		case SectionProjects:
			p.consumeProjectLine(line, lower, bulleted, &curProj, flushProject)
		case SectionLanguages:
			if idx := strings.Index(line, ":"); idx >= 0 {
				if value := strings.TrimSpace(line[idx+1:]); value != "" {
					cv.Languages = append(cv.Languages, value)
				}
			} else if utf8.RuneCountInString(line) < 50 {
				cv.Languages = append(cv.Languages, line)
			}
		}
	}
	flushAll()

	if len(cv.Skills) == 0 {
		cv.Skills = ExtractKnownSkills(rawText)
	}
	cv.Skills = dedupeSkills(cv.Skills)

	return cv
}

func (p *ComplexCVParser) consumeExperienceLine(line, lower string, bulleted bool, cur **openExperience, flush func()) {
	if bulleted {
		content := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if content == "" {
			return
		}
		if strings.Contains(strings.ToLower(content), " at ") {
			position, company := splitPositionCompany(content)
			switch {
			case *cur == nil:
				*cur = &openExperience{position: position, company: company}
			case (*cur).position == "":
				(*cur).position = position
				(*cur).company = company
			default:
				flush()
				*cur = &openExperience{position: position, company: company}
			}
			return
		}
		if *cur != nil {
			(*cur).achievements = append((*cur).achievements, content)
		} else {
			*cur = &openExperience{description: content}
		}
		return
	}

	// Non-bulleted content line: a fresh job row. Other-section keywords
	// were already intercepted by the segmenter.
	flush()
	if strings.Contains(lower, " at ") {
		position, company := splitPositionCompany(line)
		*cur = &openExperience{position: position, company: company}
	} else {
		*cur = &openExperience{position: line}
	}
}

func (p *ComplexCVParser) consumeEducationLine(line, lower string, bulleted bool, cur **openEducation, flush func()) {
	switch {
	case !bulleted && (strings.Contains(lower, "university") || strings.Contains(lower, "college")):
		flush()
		*cur = &openEducation{institution: line}
	case strings.Contains(lower, "degree") || strings.Contains(lower, "major"):
		if *cur != nil {
			if idx := strings.Index(line, ":"); idx >= 0 {
				(*cur).degree = strings.TrimSpace(line[idx+1:])
			}
		}
	case *cur != nil && containsYearToken(lower):
		(*cur).duration = line
	}
}

func (p *ComplexCVParser) consumeProjectLine(line, lower string, bulleted bool, cur **openProject, flush func()) {
	if bulleted {
		flush()
		content := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if content == "" {
			return
		}
		title, description := splitTitleDescription(content)
		proj := &openProject{title: title, description: description, technologies: []string{}, achievements: []string{}}
		proj.extractInlineTechnologies()
		*cur = proj
		return
	}
	if *cur == nil {
		return
	}
	if isTechLine(lower) {
		part := line
		if idx := strings.Index(line, ":"); idx >= 0 {
			part = line[idx+1:]
		}
		(*cur).technologies = append((*cur).technologies, splitList(part)...)
		return
	}
	if (*cur).description != "" {
		(*cur).description += " " + line
	} else {
		(*cur).description = line
	}
}

// extractInlineTechnologies splits a trailing technology list off the
// description when a tech marker appears inline in the same bullet.
func (o *openProject) extractInlineTechnologies() {
	loc := techMarkerRegex.FindStringIndex(o.description)
	if loc == nil {
		return
	}
	techPart := o.description[loc[1]:]
	o.description = strings.TrimRight(strings.TrimSpace(o.description[:loc[0]]), " -:")
	o.technologies = append(o.technologies, splitList(techPart)...)
}

func (p *ComplexCVParser) findFullName(lines []string) string {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, hint := range nameHints {
			if strings.Contains(lower, hint) {
				if i+1 < len(lines) {
					return lines[i+1]
				}
				return line
			}
		}
	}
	// Fallback: first line that is neither contact data nor a single word.
	for _, line := range lines {
		if emailRegex.MatchString(line) || phoneRegex.MatchString(line) {
			continue
		}
		if len(strings.Fields(line)) >= 2 {
			return line
		}
	}
	return ""
}

func (p *ComplexCVParser) findLocation(lines []string) string {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, hint := range locationHints {
			if strings.Contains(lower, hint) {
				if idx := strings.Index(line, ":"); idx >= 0 {
					return strings.TrimSpace(line[idx+1:])
				}
				if i+1 < len(lines) {
					return lines[i+1]
				}
				return ""
			}
		}
	}
	return ""
}

// normalizeBullets rewrites bullet glyphs and non-breaking artifacts so the
// line rules only ever see "-" markers and plain spaces.
func normalizeBullets(text string) string {
	replacer := strings.NewReplacer(
		"•", "-",
		" ", " ",
		"​", "",
		"\uFEFF", "",
	)
	return replacer.Replace(text)
}

// splitLines trims every line and drops the empty ones.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// splitPositionCompany splits "Engineer at Acme" into its two halves. When
// the literal " at " only exists in the lower-cased view, the whole text
// becomes the position and the company stays empty.
func splitPositionCompany(content string) (position, company string) {
	parts := strings.Split(content, " at ")
	position = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		company = strings.TrimSpace(parts[1])
	}
	return position, company
}

// splitTitleDescription applies the project bullet precedence: " - " first,
// then ":", else the whole remainder is the title.
func splitTitleDescription(content string) (title, description string) {
	if strings.Contains(content, " - ") {
		parts := strings.SplitN(content, " - ", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	if idx := strings.Index(content, ":"); idx >= 0 {
		return strings.TrimSpace(content[:idx]), strings.TrimSpace(content[idx+1:])
	}
	return content, ""
}

func splitList(part string) []string {
	out := []string{}
	for _, t := range listSplitRegex.Split(part, -1) {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isTechLine(lower string) bool {
	return strings.HasPrefix(lower, "tech") ||
		strings.Contains(lower, "technologies") ||
		strings.Contains(lower, "tools")
}

func containsYearToken(lower string) bool {
	for _, y := range yearTokens {
		if strings.Contains(lower, y) {
			return true
		}
	}
	return false
}
