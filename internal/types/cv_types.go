package types

import "time"

// PersonalInfo holds the contact block of a structured CV.
// The four base fields are always present on the wire (possibly empty);
// the optional fields are carried explicitly instead of as ad hoc map keys
// so schema additions stay visible in the type.
type PersonalInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`

	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Title    string `json:"title,omitempty"`
	// Summary doubles as the degraded-parse excerpt slot: when structuring
	// fails entirely, a truncated excerpt of the raw text lands here.
	Summary string `json:"summary,omitempty"`
}

// EducationEntry is one education record, in text appearance order.
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Duration    string `json:"duration"`
}

// ExperienceEntry is one work experience record.
type ExperienceEntry struct {
	Position     string   `json:"position"`
	Company      string   `json:"company"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
}

// ProjectEntry is one project record.
type ProjectEntry struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Achievements []string `json:"achievements"`
}

// StructuredCV is the canonical output schema of the structuring engine.
// Every collection is non-nil on construction; callers and the HTTP layer
// may rely on the full shape always being present.
type StructuredCV struct {
	PersonalInfo   PersonalInfo      `json:"personal_info"`
	Education      []EducationEntry  `json:"education"`
	Experience     []ExperienceEntry `json:"experience"`
	Skills         []string          `json:"skills"`
	Projects       []ProjectEntry    `json:"projects"`
	Certifications []string          `json:"certifications"`
	Languages      []string          `json:"languages"`
}

// NewStructuredCV returns an empty CV with every collection allocated.
func NewStructuredCV() *StructuredCV {
	return &StructuredCV{
		Education:      []EducationEntry{},
		Experience:     []ExperienceEntry{},
		Skills:         []string{},
		Projects:       []ProjectEntry{},
		Certifications: []string{},
		Languages:      []string{},
	}
}

// Normalize replaces nil collections with empty ones so that a CV decoded
// from JSON (or hand-built in tests) still satisfies the shape invariant.
func (cv *StructuredCV) Normalize() {
	if cv.Education == nil {
		cv.Education = []EducationEntry{}
	}
	if cv.Experience == nil {
		cv.Experience = []ExperienceEntry{}
	}
	if cv.Skills == nil {
		cv.Skills = []string{}
	}
	if cv.Projects == nil {
		cv.Projects = []ProjectEntry{}
	}
	if cv.Certifications == nil {
		cv.Certifications = []string{}
	}
	if cv.Languages == nil {
		cv.Languages = []string{}
	}
	for i := range cv.Experience {
		if cv.Experience[i].Achievements == nil {
			cv.Experience[i].Achievements = []string{}
		}
	}
	for i := range cv.Projects {
		if cv.Projects[i].Technologies == nil {
			cv.Projects[i].Technologies = []string{}
		}
		if cv.Projects[i].Achievements == nil {
			cv.Projects[i].Achievements = []string{}
		}
	}
}

// ATSScore is the result of an ATS heuristic pass, either over raw text or
// over an already structured CV.
type ATSScore struct {
	Score    int                    `json:"score"`
	Feedback []string               `json:"feedback"`
	Features map[string]interface{} `json:"features"`
}

// BuilderStep names the current stage of an interactive builder session.
type BuilderStep string

const (
	StepWelcome    BuilderStep = "welcome"
	StepName       BuilderStep = "name"
	StepEmail      BuilderStep = "email"
	StepPhone      BuilderStep = "phone"
	StepExperience BuilderStep = "experience"
	StepSkills     BuilderStep = "skills"
	StepEducation  BuilderStep = "education"
	StepSummary    BuilderStep = "summary"
	StepDone       BuilderStep = "done"
)

// BuilderSession is one conversational CV-building session. Sessions are
// persisted through storage.SessionStore; nothing in the core keeps them in
// process-global state.
type BuilderSession struct {
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	Language     string        `json:"language"`
	CV           *StructuredCV `json:"current_cv"`
	CurrentStep  BuilderStep   `json:"current_step"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// BuilderProgress summarizes how complete a draft CV is.
type BuilderProgress struct {
	Percentage int      `json:"percentage"`
	Completed  int      `json:"completed"`
	Total      int      `json:"total"`
	Status     string   `json:"status"`
	Missing    []string `json:"missing"`
}
