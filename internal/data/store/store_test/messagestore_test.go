package store_test

import (
	"fmt"
	"testing"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/data/store"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageStores(t *testing.T) map[string]jobModel.MessageStore {
	_, rs := newRedis(t, config.RedisMessageStore)
	return map[string]jobModel.MessageStore{
		"redis":  store.NewRedisMessageStore(rs),
		"memory": store.InitMessageStore(),
	}
}

func TestMessageStore_HistoryIsOldestFirstAndBounded(t *testing.T) {
	for name, ms := range messageStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testCtx()
			require.NoError(t, ms.InitNewChat(ctx, "chat-1"))
			assert.True(t, ms.ValidateChatId(ctx, "chat-1"))

			history, err := ms.GetMessageHistory(ctx, "chat-1")
			require.NoError(t, err)
			assert.Empty(t, history)

			for i := 0; i < 7; i++ {
				require.NoError(t, ms.TrySaveChat(ctx, "chat-1", commonModels.ConversationTurn{
					Question: fmt.Sprintf("q%d", i),
					Answer:   fmt.Sprintf("a%d", i),
				}))
			}

			history, err = ms.GetMessageHistory(ctx, "chat-1")
			require.NoError(t, err)
			require.Len(t, history, config.ConversationHistoryTurns)
			assert.Equal(t, "q2", history[0].Question)
			assert.Equal(t, "a6", history[len(history)-1].Answer)
		})
	}
}

func TestMessageStore_UnknownChat(t *testing.T) {
	for name, ms := range messageStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testCtx()
			assert.False(t, ms.ValidateChatId(ctx, "nope"))
			assert.Error(t, ms.TrySaveChat(ctx, "nope", commonModels.ConversationTurn{Question: "q"}))
		})
	}
}

func TestMessageStore_InitResetsHistory(t *testing.T) {
	for name, ms := range messageStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testCtx()
			require.NoError(t, ms.InitNewChat(ctx, "chat-2"))
			require.NoError(t, ms.TrySaveChat(ctx, "chat-2", commonModels.ConversationTurn{Question: "q", Answer: "a"}))
			require.NoError(t, ms.InitNewChat(ctx, "chat-2"))

			history, err := ms.GetMessageHistory(ctx, "chat-2")
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}
