package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/data/redisStore"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/pkg/logger_i"
)

var errInvalidChat = errors.New("invalid chat id")

// A chat is a marker key plus a list of turns, so a chat with no turns yet still validates.
const (
	chatKeyPrefix  = "chat:"
	turnsKeySuffix = ":turns"
)

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisMessageStore(store *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  store,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func chatKey(id string) string  { return chatKeyPrefix + id }
func turnsKey(id string) string { return chatKeyPrefix + id + turnsKeySuffix }

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	if chatId == "" {
		return false
	}
	isFound, err := s.store.Exists(ctx, chatKey(chatId))
	if err != nil {
		s.logger.WithTrace(ctx).Error("Failed to check if chatId exists", "chat Id", chatId, "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, id string, turn commonModels.ConversationTurn) error {
	log := s.logger.WithTrace(ctx).With("chat Id", id)
	if !s.ValidateChatId(ctx, id) {
		log.Error("Failed Validation before saving", "error", errInvalidChat)
		return errInvalidChat
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	if err = s.store.ListPush(ctx, turnsKey(id), data, config.RedisMessageStoreTTL); err != nil {
		log.Error("error saving chat", "error", err)
		return err
	}
	// the marker lives as long as the turns do
	if err = s.store.Expire(ctx, chatKey(id), config.RedisMessageStoreTTL); err != nil {
		log.Warn("could not refresh chat ttl", "error", err)
	}
	log.Debug("Saved chat successfully")
	return nil
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	s.logger.WithTrace(ctx).Debug("Initializing new chat", "chat Id", id)
	if err := s.store.Del(ctx, turnsKey(id)); err != nil {
		return err
	}
	return s.store.Set(ctx, chatKey(id), "1", config.RedisMessageStoreTTL)
}

// GetMessageHistory returns the most recent turns, oldest first.
func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ConversationTurn, error) {
	log := s.logger.WithTrace(ctx).With("chat Id", chatId)

	raw, err := s.store.ListTail(ctx, turnsKey(chatId), config.ConversationHistoryTurns)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}
	history := make([]commonModels.ConversationTurn, 0, len(raw))
	for _, r := range raw {
		var turn commonModels.ConversationTurn
		if err := json.Unmarshal([]byte(r), &turn); err != nil {
			log.Warn("skipping unreadable turn", "error", err)
			continue
		}
		history = append(history, turn)
	}
	return history, nil
}
