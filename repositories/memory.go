package repositories

import (
	"sort"
	"sync"
	"terminal-messenger/domain"
	"terminal-messenger/errors"
	"time"

	"github.com/samber/lo"
)

// MemoryMessageRepository keeps messages in process memory only; everything
// is lost on restart.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]domain.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string]domain.Message)}
}

func (m *MemoryMessageRepository) Insert(message domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[message.ID]; ok {
		return errors.ErrAlreadyExists
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MemoryMessageRepository) Get(id string) (domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	message, ok := m.messages[id]
	if !ok {
		return domain.Message{}, errors.ErrNotFound
	}
	return message, nil
}

func (m *MemoryMessageRepository) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

func (m *MemoryMessageRepository) DeleteCreatedBefore(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, message := range m.messages {
		if message.CreatedAt.Before(cutoff) {
			delete(m.messages, id)
			deleted++
		}
	}
	return deleted, nil
}

// List returns messages oldest first.
func (m *MemoryMessageRepository) List() ([]domain.Message, error) {
	m.mu.RLock()
	messages := lo.Values(m.messages)
	m.mu.RUnlock()
	sortByCreation(messages)
	return messages, nil
}

func sortByCreation(messages []domain.Message) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}
