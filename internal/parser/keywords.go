package parser

import "strings"

// Section is the segmenter state: which CV section the line scanner is
// currently consuming.
type Section string

const (
	SectionNone       Section = ""
	SectionExperience Section = "EXPERIENCE"
	SectionEducation  Section = "EDUCATION"
	SectionSkills     Section = "SKILLS"
	SectionProjects   Section = "PROJECTS"
	SectionLanguages  Section = "LANGUAGES"
)

// sectionOrder fixes the match priority when one line contains keywords of
// several sections.
var sectionOrder = []Section{
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionLanguages,
}

// KeywordTable maps each section to its header keywords. Matching is
// lower-cased substring containment, so entries must be lower case.
type KeywordTable map[Section][]string

// DefaultKeywords is the built-in bilingual (English/Arabic) table. Callers
// that need another locale can extend a copy via Clone and pass it to
// NewComplexCVParser; the control flow never hard-codes a keyword.
var DefaultKeywords = KeywordTable{
	SectionExperience: {"experience", "work", "خبرة"},
	SectionEducation:  {"education", "university", "degree", "تعليم", "جامعة", "درجة"},
	SectionSkills:     {"skills", "technologies", "مهارات", "تكنولوجيا"},
	SectionProjects:   {"projects", "مشاريع"},
	SectionLanguages:  {"languages", "لغات", "language"},
}

// Clone returns a deep copy of the table.
func (t KeywordTable) Clone() KeywordTable {
	out := make(KeywordTable, len(t))
	for sec, kws := range t {
		out[sec] = append([]string(nil), kws...)
	}
	return out
}

// Match returns the first section (in priority order) whose keyword set hits
// the lower-cased line, or SectionNone.
func (t KeywordTable) Match(lowerLine string) Section {
	for _, sec := range sectionOrder {
		for _, kw := range t[sec] {
			if strings.Contains(lowerLine, kw) {
				return sec
			}
		}
	}
	return SectionNone
}
