// Package builder implements the interactive CV builder: a small step
// machine that walks a user through their contact details, experience,
// skills, education and summary, filling a draft StructuredCV one answer
// at a time. Sessions live behind storage.SessionStore, never in
// package state.
package builder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cv-intake-go/internal/parser"
	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSessionComplete is returned when an answer is submitted to a session
// that has already reached the final step.
var ErrSessionComplete = errors.New("builder session already complete")

const (
	// LanguageEnglish and LanguageArabic are the supported prompt locales.
	LanguageEnglish = "english"
	LanguageArabic  = "arabic"

	totalSections = 5
)

// answerSplitRegex separates list answers on Latin and Arabic delimiters.
var answerSplitRegex = regexp.MustCompile(`[,،;|\n]+`)

// Reply is the builder's response to one user interaction.
type Reply struct {
	SessionID   string                `json:"session_id"`
	Message     string                `json:"message"`
	Suggestions []string              `json:"suggestions"`
	Step        types.BuilderStep     `json:"next_step"`
	Progress    types.BuilderProgress `json:"progress"`
	Done        bool                  `json:"is_complete"`
}

// Builder drives interactive CV-building sessions over a SessionStore.
type Builder struct {
	sessions storage.SessionStore
	logger   *zerolog.Logger
}

// New creates a Builder backed by the given session store.
func New(sessions storage.SessionStore, logger *zerolog.Logger) *Builder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Builder{sessions: sessions, logger: logger}
}

// StartSession creates a fresh session for the user and returns the welcome
// prompt. Language accepts "arabic"/"ar"; everything else is English.
func (b *Builder) StartSession(ctx context.Context, userID, language string) (*Reply, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	lang := normalizeLanguage(language)
	id := uuid.New()
	now := time.Now()

	session := &types.BuilderSession{
		SessionID:    fmt.Sprintf("%s_%x", userID, id[:4]),
		UserID:       userID,
		Language:     lang,
		CV:           types.NewStructuredCV(),
		CurrentStep:  types.StepName,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := b.sessions.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create builder session: %w", err)
	}

	b.logger.Info().
		Str("session_id", session.SessionID).
		Str("user_id", userID).
		Str("language", lang).
		Msg("builder session started")

	return b.reply(session, prompt(lang, types.StepWelcome)), nil
}

// Answer applies one user message to the session's current step, persists
// the updated draft and returns the next prompt.
func (b *Builder) Answer(ctx context.Context, sessionID, message string) (*Reply, error) {
	session, err := b.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CurrentStep == types.StepDone {
		return nil, ErrSessionComplete
	}

	session.CV.Normalize()
	answer := strings.TrimSpace(message)

	var msg string
	if isSkip(answer) {
		session.CurrentStep = nextStep(session.CurrentStep)
		msg = prompt(session.Language, session.CurrentStep)
	} else {
		msg = b.applyAnswer(session, answer)
	}

	session.LastActivity = time.Now()
	if err := b.sessions.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save builder session %s: %w", sessionID, err)
	}

	r := b.reply(session, msg)
	return r, nil
}

// Session returns the stored session together with its draft progress.
func (b *Builder) Session(ctx context.Context, sessionID string) (*types.BuilderSession, types.BuilderProgress, error) {
	session, err := b.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, types.BuilderProgress{}, err
	}
	session.CV.Normalize()
	return session, Progress(session.CV), nil
}

// DeleteSession discards a session. Missing sessions are not an error.
func (b *Builder) DeleteSession(ctx context.Context, sessionID string) error {
	return b.sessions.DeleteSession(ctx, sessionID)
}

// applyAnswer writes the answer into the draft CV for the current step,
// advances the step machine and returns the next prompt.
func (b *Builder) applyAnswer(session *types.BuilderSession, answer string) string {
	cv := session.CV
	lang := session.Language

	switch session.CurrentStep {
	case types.StepWelcome, types.StepName:
		cv.PersonalInfo.FullName = answer
		session.CurrentStep = types.StepEmail
		if lang == LanguageArabic {
			return fmt.Sprintf("تشرفنا يا %s! %s", answer, prompt(lang, types.StepEmail))
		}
		return fmt.Sprintf("Great, %s! %s", answer, prompt(lang, types.StepEmail))

	case types.StepEmail:
		if email := parser.ExtractEmail(answer); email != "" {
			cv.PersonalInfo.Email = email
		} else {
			cv.PersonalInfo.Email = answer
		}
		session.CurrentStep = types.StepPhone

	case types.StepPhone:
		if phone := parser.ExtractPhone(answer); phone != "" {
			cv.PersonalInfo.Phone = phone
		} else {
			cv.PersonalInfo.Phone = answer
		}
		session.CurrentStep = types.StepExperience

	case types.StepExperience:
		cv.Experience = append(cv.Experience, parseExperienceAnswer(answer))
		// stays on the same step so more roles can be added; "next" moves on
		return stickyPrompt(lang, types.StepExperience)

	case types.StepSkills:
		cv.Skills = append(cv.Skills, splitListAnswer(answer)...)
		return stickyPrompt(lang, types.StepSkills)

	case types.StepEducation:
		cv.Education = append(cv.Education, parseEducationAnswer(answer))
		return stickyPrompt(lang, types.StepEducation)

	case types.StepSummary:
		cv.PersonalInfo.Summary = answer
		session.CurrentStep = types.StepDone
	}

	return prompt(lang, session.CurrentStep)
}

func (b *Builder) reply(session *types.BuilderSession, message string) *Reply {
	return &Reply{
		SessionID:   session.SessionID,
		Message:     message,
		Suggestions: suggestions(session.Language, session.CurrentStep),
		Step:        session.CurrentStep,
		Progress:    Progress(session.CV),
		Done:        session.CurrentStep == types.StepDone,
	}
}

// stepOrder is the fixed interview order. nextStep from the last entry
// stays at StepDone.
var stepOrder = []types.BuilderStep{
	types.StepWelcome,
	types.StepName,
	types.StepEmail,
	types.StepPhone,
	types.StepExperience,
	types.StepSkills,
	types.StepEducation,
	types.StepSummary,
	types.StepDone,
}

func nextStep(step types.BuilderStep) types.BuilderStep {
	for i, s := range stepOrder {
		if s == step && i+1 < len(stepOrder) {
			return stepOrder[i+1]
		}
	}
	return types.StepDone
}

func normalizeLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case LanguageArabic, "ar", "العربية":
		return LanguageArabic
	default:
		return LanguageEnglish
	}
}

// skip words advance the step machine without recording an answer.
func isSkip(answer string) bool {
	switch strings.ToLower(answer) {
	case "skip", "next", "done", "تخطي", "التالي", "تم":
		return true
	}
	return false
}

// parseExperienceAnswer reads one free-text role line. The expected shape is
// "Position at Company, Duration"; missing parts are left empty rather than
// guessed.
func parseExperienceAnswer(answer string) types.ExperienceEntry {
	entry := types.ExperienceEntry{Achievements: []string{}}

	rest := answer
	if idx := strings.Index(strings.ToLower(answer), " at "); idx >= 0 {
		entry.Position = strings.TrimSpace(answer[:idx])
		rest = answer[idx+len(" at "):]
	} else if idx := strings.Index(answer, " في "); idx >= 0 {
		entry.Position = strings.TrimSpace(answer[:idx])
		rest = answer[idx+len(" في "):]
	} else {
		entry.Position = strings.TrimSpace(answer)
		return entry
	}

	parts := answerSplitRegex.Split(rest, 2)
	entry.Company = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		entry.Duration = strings.TrimSpace(parts[1])
	}
	return entry
}

// parseEducationAnswer reads "Degree, Institution, Duration".
func parseEducationAnswer(answer string) types.EducationEntry {
	entry := types.EducationEntry{}
	parts := answerSplitRegex.Split(answer, 3)
	if len(parts) > 0 {
		entry.Degree = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		entry.Institution = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		entry.Duration = strings.TrimSpace(parts[2])
	}
	return entry
}

func splitListAnswer(answer string) []string {
	var items []string
	for _, token := range answerSplitRegex.Split(answer, -1) {
		token = strings.TrimSpace(token)
		if token != "" {
			items = append(items, token)
		}
	}
	return items
}

// Progress reports draft completeness. Five sections count toward the
// total but the summary only feeds the missing list, so a draft without
// one tops out at 80 percent; this mirrors how completion has always been
// reported to clients.
func Progress(cv *types.StructuredCV) types.BuilderProgress {
	progress := types.BuilderProgress{Total: totalSections, Missing: []string{}}
	if cv == nil {
		progress.Status = "Beginner"
		progress.Missing = []string{"personal_info", "experience", "education", "skills", "summary"}
		return progress
	}

	if cv.PersonalInfo.FullName != "" || cv.PersonalInfo.Email != "" || cv.PersonalInfo.Phone != "" {
		progress.Completed++
	} else {
		progress.Missing = append(progress.Missing, "personal_info")
	}
	if len(cv.Experience) > 0 {
		progress.Completed++
	} else {
		progress.Missing = append(progress.Missing, "experience")
	}
	if len(cv.Education) > 0 {
		progress.Completed++
	} else {
		progress.Missing = append(progress.Missing, "education")
	}
	if len(cv.Skills) > 0 {
		progress.Completed++
	} else {
		progress.Missing = append(progress.Missing, "skills")
	}
	if cv.PersonalInfo.Summary == "" {
		progress.Missing = append(progress.Missing, "summary")
	}

	progress.Percentage = progress.Completed * 100 / totalSections
	switch {
	case progress.Percentage < 30:
		progress.Status = "Beginner"
	case progress.Percentage < 70:
		progress.Status = "Intermediate"
	default:
		progress.Status = "Advanced"
	}
	return progress
}
