package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatModel implements model.ToolCallingChatModel for tests.
type mockChatModel struct {
	response  string
	err       error
	callCount int
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: "assistant", Content: m.response}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

const modelCVResponse = `Here is the structured CV:
` + "```json" + `
{
  "personal_info": {"full_name": "Jane Doe", "email": "", "phone": "", "location": "Berlin"},
  "education": [{"institution": "Example University", "degree": "BSc", "duration": "2015-2019"}],
  "experience": [{"position": "Engineer", "company": "ExampleCo", "duration": "", "description": "", "achievements": ["Shipped v2"]}],
  "skills": ["Go", "FastAPI"],
  "projects": [],
  "certifications": [],
  "languages": ["English"]
}
` + "```"

func TestLLMStructurer_ParsesModelResponse(t *testing.T) {
	mock := &mockChatModel{response: modelCVResponse}
	s := NewLLMCVStructurer(mock, nil)

	cv := s.StructureCV(context.Background(), "Jane Doe\njane@example.com\nEngineer at ExampleCo")
	require.NotNil(t, cv)

	assert.Equal(t, "Jane Doe", cv.PersonalInfo.FullName)
	assert.Equal(t, "Berlin", cv.PersonalInfo.Location)
	assert.Equal(t, []string{"Go", "FastAPI"}, cv.Skills)
	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "ExampleCo", cv.Experience[0].Company)

	// Missing contact fields are recovered by the regex extractors.
	assert.Equal(t, "jane@example.com", cv.PersonalInfo.Email)

	// Collections absent from the response come back allocated.
	assert.NotNil(t, cv.Projects)
}

func TestLLMStructurer_FallsBackOnModelError(t *testing.T) {
	mock := &mockChatModel{err: errors.New("billing hard limit reached")}
	s := NewLLMCVStructurer(mock, nil)

	cv := s.StructureCV(context.Background(), labeledCV)
	require.NotNil(t, cv)

	// Heuristic result for the same text.
	assert.Equal(t, "Jane Doe", cv.PersonalInfo.FullName)
	assert.Equal(t, []string{"Python", "FastAPI", "Docker"}, cv.Skills)
	// A non-retryable error is not retried.
	assert.Equal(t, 1, mock.callCount)
}

func TestLLMStructurer_FallsBackOnMalformedJSON(t *testing.T) {
	mock := &mockChatModel{response: "I could not process this CV, sorry."}
	s := NewLLMCVStructurer(mock, nil)

	cv := s.StructureCV(context.Background(), labeledCV)
	require.NotNil(t, cv)
	assert.Equal(t, "Jane Doe", cv.PersonalInfo.FullName)
}

func TestLLMStructurer_NilModelUsesHeuristics(t *testing.T) {
	s := NewLLMCVStructurer(nil, nil)
	cv := s.StructureCV(context.Background(), labeledCV)
	require.NotNil(t, cv)
	assert.Equal(t, "jane.doe@example.com", cv.PersonalInfo.Email)
}

func TestLLMStructurer_RetriesTransientErrors(t *testing.T) {
	mock := &mockChatModel{err: errors.New("context deadline exceeded")}
	s := NewLLMCVStructurer(mock, nil, WithMaxRetries(1), WithCallTimeout(time.Second))

	cv := s.StructureCV(context.Background(), "Name: Bob\nSkills: Go")
	require.NotNil(t, cv)
	assert.Equal(t, 2, mock.callCount)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSONObject("noise {\"a\": 1} trailer"))
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSONObject(`{"a": {"b": 2}}`))
	assert.Equal(t, "", extractJSONObject("no json here"))
}
