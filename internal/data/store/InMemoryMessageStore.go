package store

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
)

var ErrUnknownChat = errors.New("unknown chat id")

type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]chatModel.Message
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]chatModel.Message),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]chatModel.Message, 0, config.ChatHistoryLimit)
	return nil
}

func (store *InMemoryMessageStore) AppendMessages(ctx context.Context, id string, messages ...chatModel.Message) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	history, ok := store.chatMap[id]
	if !ok {
		return ErrUnknownChat
	}
	history = append(history, messages...)
	if over := len(history) - config.ChatHistoryLimit; over > 0 {
		history = append([]chatModel.Message(nil), history[over:]...)
	}
	store.chatMap[id] = history
	return nil
}

func (store *InMemoryMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]chatModel.Message, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	history, ok := store.chatMap[chatId]
	if !ok {
		return nil, ErrUnknownChat
	}
	return append([]chatModel.Message(nil), history...), nil
}
