package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChatService answers questions grounded in retrieved passages and keeps
// a bounded conversation memory.
type ChatService interface {
	// Answer retrieves passages for question, asks the chat model and
	// records the exchange in memory.
	Answer(ctx context.Context, question string) (*domain.Answer, error)

	// History returns remembered turns, oldest first.
	History() []domain.ConversationTurn

	// ClearMemory forgets every turn.
	ClearMemory()
}
