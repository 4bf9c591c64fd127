package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/data/redisStore"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

// A chat is open while its marker key exists; messages live in a capped list next to it.
func chatMarkerKey(id string) string  { return "chat:" + id + ":open" }
func chatHistoryKey(id string) string { return "chat:" + id + ":messages" }

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

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	isFound, err := s.store.Exists(ctx, chatMarkerKey(chatId))
	if err != nil {
		s.logger.WithTrace(ctx).Error("Failed to check if chatId exists", "chatId", chatId, "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.WithTrace(ctx).With("chatId", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, chatHistoryKey(id)); err != nil {
		log.Error("Error clearing chat history", "error", err)
		return err
	}
	return s.store.Set(ctx, chatMarkerKey(id), 1, config.RedisMessageStoreTTL)
}

func (s *RedisMessageStore) AppendMessages(ctx context.Context, id string, messages ...chatModel.Message) error {
	log := s.logger.WithTrace(ctx).With("chatId", id)
	if !s.ValidateChatId(ctx, id) {
		log.Warn("Refusing to append to unknown chat")
		return ErrUnknownChat
	}

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := s.store.ListAppend(ctx, chatHistoryKey(id), config.ChatHistoryLimit, config.RedisMessageStoreTTL, values...); err != nil {
		log.Error("error saving chat", "error", err)
		return err
	}
	return s.store.Set(ctx, chatMarkerKey(id), 1, config.RedisMessageStoreTTL)
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]chatModel.Message, error) {
	log := s.logger.WithTrace(ctx).With("chatId", chatId)
	if !s.ValidateChatId(ctx, chatId) {
		return nil, ErrUnknownChat
	}

	raw, err := s.store.ListGetLast(ctx, chatHistoryKey(chatId), config.ChatHistoryLimit)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}
	history := make([]chatModel.Message, 0, len(raw))
	for _, r := range raw {
		var m chatModel.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			log.Warn("Skipping unreadable history entry", "error", err)
			continue
		}
		history = append(history, m)
	}
	return history, nil
}
