package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func answerWithSources(question string) (*domain.Answer, error) {
	return &domain.Answer{
		Question: question,
		Text:     "Revenue grew ten percent.",
		Sources: []domain.Citation{
			{Source: "report.pdf", Page: 1},
			{Source: "notes.txt"},
		},
	}, nil
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.answerFunc = answerWithSources

	out, err := execute(t, "ask", "What", "happened", "to", "revenue?")

	require.NoError(t, err)
	require.Len(t, ts.chat.history, 1)
	assert.Equal(t, "What happened to revenue?", ts.chat.history[0].Question)
	assert.Contains(t, out, "Revenue grew ten percent.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] report.pdf (page 1)")
	assert.Contains(t, out, "[2] notes.txt")
}

func TestAskCmd_NoSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.answerFunc = answerWithSources

	out, err := execute(t, "ask", "--no-sources", "revenue?")

	require.NoError(t, err)
	assert.Contains(t, out, "Revenue grew ten percent.")
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_Errors(t *testing.T) {
	t.Run("no chat model", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()
		chatService = nil

		_, err := execute(t, "ask", "hello")

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("blank question", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "ask", "   ")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("model failure", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()
		ts.chat.answerFunc = func(string) (*domain.Answer, error) {
			return nil, &domain.LLMServiceError{Err: errors.New("timeout")}
		}

		_, err := execute(t, "ask", "hello")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrLLMService)
	})
}
