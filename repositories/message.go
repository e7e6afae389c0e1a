//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"terminal-messenger/domain"
	"time"
)

// IMessageRepository is the record store. Implementations only store and
// retrieve: expiry decisions belong to the service, which knows the clock.
type IMessageRepository interface {
	// Insert stores a new message, failing with errors.ErrAlreadyExists when
	// the identifier is taken.
	Insert(message domain.Message) error
	// Get fails with errors.ErrNotFound for unknown identifiers.
	Get(id string) (domain.Message, error)
	// Delete is a no-op for unknown identifiers.
	Delete(id string) error
	// DeleteCreatedBefore removes every message created strictly before cutoff
	// and returns how many were removed.
	DeleteCreatedBefore(cutoff time.Time) (int, error)
	List() ([]domain.Message, error)
}

// DiskMessage is the persisted shape of a message, shared by the JSON
// snapshot file and the badger values.
type DiskMessage struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Theme     string    `json:"theme"`
	Lang      string    `json:"lang,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func fromDomainMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID,
		Message:   message.Content,
		Theme:     message.Theme,
		Lang:      message.Lang,
		CreatedAt: message.CreatedAt.UTC(),
	}
}

func toDomainMessage(diskMessage DiskMessage) domain.Message {
	return domain.Message{
		ID:        diskMessage.ID,
		Content:   diskMessage.Message,
		Theme:     diskMessage.Theme,
		Lang:      diskMessage.Lang,
		CreatedAt: diskMessage.CreatedAt.UTC(),
	}
}
