package builder

import (
	"context"
	"testing"
	"time"

	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder {
	return New(storage.NewMemorySessionStore(time.Minute), nil)
}

func TestStartSession(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	reply, err := b.StartSession(ctx, "user-1", "english")
	require.NoError(t, err)

	assert.Contains(t, reply.SessionID, "user-1_")
	assert.Equal(t, types.StepName, reply.Step)
	assert.Contains(t, reply.Message, "full name")
	assert.False(t, reply.Done)
	assert.Equal(t, 0, reply.Progress.Percentage)

	session, progress, err := b.Session(ctx, reply.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, LanguageEnglish, session.Language)
	assert.Equal(t, "Beginner", progress.Status)
}

func TestStartSession_ArabicLocale(t *testing.T) {
	b := newTestBuilder()

	reply, err := b.StartSession(context.Background(), "user-2", "ar")
	require.NoError(t, err)

	assert.Contains(t, reply.Message, "اسمك الكامل")

	session, _, err := b.Session(context.Background(), reply.SessionID)
	require.NoError(t, err)
	assert.Equal(t, LanguageArabic, session.Language)
}

func TestStartSession_RequiresUserID(t *testing.T) {
	b := newTestBuilder()

	_, err := b.StartSession(context.Background(), "", "english")
	assert.Error(t, err)
}

func TestAnswer_FullFlow(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	start, err := b.StartSession(ctx, "user-3", "english")
	require.NoError(t, err)
	id := start.SessionID

	reply, err := b.Answer(ctx, id, "Lina Khoury")
	require.NoError(t, err)
	assert.Equal(t, types.StepEmail, reply.Step)
	assert.Contains(t, reply.Message, "Great, Lina Khoury!")

	reply, err = b.Answer(ctx, id, "lina@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.StepPhone, reply.Step)

	reply, err = b.Answer(ctx, id, "+963 944 123 456")
	require.NoError(t, err)
	assert.Equal(t, types.StepExperience, reply.Step)

	reply, err = b.Answer(ctx, id, "Backend Engineer at Nimbus, 2021 - Present")
	require.NoError(t, err)
	assert.Equal(t, types.StepExperience, reply.Step)

	reply, err = b.Answer(ctx, id, "next")
	require.NoError(t, err)
	assert.Equal(t, types.StepSkills, reply.Step)

	reply, err = b.Answer(ctx, id, "Go, Docker, Kubernetes")
	require.NoError(t, err)
	assert.Equal(t, types.StepSkills, reply.Step)

	reply, err = b.Answer(ctx, id, "next")
	require.NoError(t, err)
	assert.Equal(t, types.StepEducation, reply.Step)

	reply, err = b.Answer(ctx, id, "BSc Computer Science, Damascus University, 2015 - 2019")
	require.NoError(t, err)

	reply, err = b.Answer(ctx, id, "next")
	require.NoError(t, err)
	assert.Equal(t, types.StepSummary, reply.Step)

	reply, err = b.Answer(ctx, id, "Backend engineer focused on distributed systems.")
	require.NoError(t, err)
	assert.Equal(t, types.StepDone, reply.Step)
	assert.True(t, reply.Done)
	assert.Equal(t, 80, reply.Progress.Percentage)
	assert.Equal(t, "Advanced", reply.Progress.Status)
	assert.Empty(t, reply.Progress.Missing)

	session, _, err := b.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lina Khoury", session.CV.PersonalInfo.FullName)
	assert.Equal(t, "lina@example.com", session.CV.PersonalInfo.Email)
	assert.Equal(t, "+963 944 123 456", session.CV.PersonalInfo.Phone)
	require.Len(t, session.CV.Experience, 1)
	assert.Equal(t, "Backend Engineer", session.CV.Experience[0].Position)
	assert.Equal(t, "Nimbus", session.CV.Experience[0].Company)
	assert.Equal(t, "2021 - Present", session.CV.Experience[0].Duration)
	assert.Equal(t, []string{"Go", "Docker", "Kubernetes"}, session.CV.Skills)
	require.Len(t, session.CV.Education, 1)
	assert.Equal(t, "BSc Computer Science", session.CV.Education[0].Degree)
	assert.Equal(t, "Damascus University", session.CV.Education[0].Institution)
	assert.Equal(t, "Backend engineer focused on distributed systems.", session.CV.PersonalInfo.Summary)
}

func TestAnswer_SkipAdvancesWithoutRecording(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	start, err := b.StartSession(ctx, "user-4", "english")
	require.NoError(t, err)

	reply, err := b.Answer(ctx, start.SessionID, "skip")
	require.NoError(t, err)
	assert.Equal(t, types.StepEmail, reply.Step)

	session, _, err := b.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Empty(t, session.CV.PersonalInfo.FullName)
}

func TestAnswer_ArabicSkipWord(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	start, err := b.StartSession(ctx, "user-5", "arabic")
	require.NoError(t, err)

	reply, err := b.Answer(ctx, start.SessionID, "تخطي")
	require.NoError(t, err)
	assert.Equal(t, types.StepEmail, reply.Step)
	assert.Contains(t, reply.Message, "بريدك الإلكتروني")
}

func TestAnswer_CompletedSession(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	start, err := b.StartSession(ctx, "user-6", "english")
	require.NoError(t, err)

	for _, answer := range []string{"skip", "skip", "skip", "skip", "skip", "skip", "skip"} {
		_, err = b.Answer(ctx, start.SessionID, answer)
		require.NoError(t, err)
	}

	_, err = b.Answer(ctx, start.SessionID, "one more")
	assert.ErrorIs(t, err, ErrSessionComplete)
}

func TestAnswer_MissingSession(t *testing.T) {
	b := newTestBuilder()

	_, err := b.Answer(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	start, err := b.StartSession(ctx, "user-7", "english")
	require.NoError(t, err)

	require.NoError(t, b.DeleteSession(ctx, start.SessionID))

	_, _, err = b.Session(ctx, start.SessionID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestParseExperienceAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   types.ExperienceEntry
	}{
		{
			name:   "position company duration",
			answer: "Backend Engineer at Nimbus, 2021 - Present",
			want:   types.ExperienceEntry{Position: "Backend Engineer", Company: "Nimbus", Duration: "2021 - Present", Achievements: []string{}},
		},
		{
			name:   "position only",
			answer: "Data Analyst",
			want:   types.ExperienceEntry{Position: "Data Analyst", Achievements: []string{}},
		},
		{
			name:   "arabic separator",
			answer: "مهندس برمجيات في شركة المدار، 2020 - 2023",
			want:   types.ExperienceEntry{Position: "مهندس برمجيات", Company: "شركة المدار", Duration: "2020 - 2023", Achievements: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseExperienceAnswer(tt.answer))
		})
	}
}

func TestProgress(t *testing.T) {
	empty := types.NewStructuredCV()
	progress := Progress(empty)
	assert.Equal(t, 0, progress.Percentage)
	assert.Equal(t, "Beginner", progress.Status)
	assert.Equal(t, []string{"personal_info", "experience", "education", "skills", "summary"}, progress.Missing)

	partial := types.NewStructuredCV()
	partial.PersonalInfo.FullName = "Sami Barakat"
	partial.Skills = []string{"Go"}
	progress = Progress(partial)
	assert.Equal(t, 2, progress.Completed)
	assert.Equal(t, 40, progress.Percentage)
	assert.Equal(t, "Intermediate", progress.Status)
	assert.Contains(t, progress.Missing, "experience")
	assert.Contains(t, progress.Missing, "summary")

	// summary is never counted toward completion, only reported as missing
	full := types.NewStructuredCV()
	full.PersonalInfo.FullName = "Sami Barakat"
	full.Experience = append(full.Experience, types.ExperienceEntry{Position: "Engineer"})
	full.Education = append(full.Education, types.EducationEntry{Degree: "BSc"})
	full.Skills = []string{"Go"}
	full.PersonalInfo.Summary = "Engineer."
	progress = Progress(full)
	assert.Equal(t, 4, progress.Completed)
	assert.Equal(t, 80, progress.Percentage)
	assert.Equal(t, "Advanced", progress.Status)
	assert.Empty(t, progress.Missing)
}
