package memory

import (
	"context"
	"testing"

	"ai-assistant-studio-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageRepository_AppendKeepsOrderPerAssistant(t *testing.T) {
	repo := NewChatMessageRepository()
	ctx := context.Background()

	for _, text := range []string{"hola", "¿qué tal?", "adiós"} {
		require.NoError(t, repo.Append(ctx, &entity.ChatMessage{Id: uuid.New(), AssistantId: "1", Sender: entity.SenderUser, Text: text}))
	}
	require.NoError(t, repo.Append(ctx, &entity.ChatMessage{Id: uuid.New(), AssistantId: "2", Sender: entity.SenderUser, Text: "otro"}))

	log, err := repo.ListByAssistant(ctx, "1")
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "hola", log[0].Text)
	assert.Equal(t, "adiós", log[2].Text)

	other, err := repo.ListByAssistant(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestChatMessageRepository_DeleteByAssistant(t *testing.T) {
	repo := NewChatMessageRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, &entity.ChatMessage{Id: uuid.New(), AssistantId: "1", Text: "hola"}))
	require.NoError(t, repo.DeleteByAssistant(ctx, "1"))

	log, err := repo.ListByAssistant(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, log)
}
