//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"terminal-messenger/domain"
	"terminal-messenger/domain/theme"
	"terminal-messenger/errors"
	"terminal-messenger/moderation"
	"terminal-messenger/observability"
	"terminal-messenger/repositories"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// maxIDAttempts bounds the collision retry loop when generating identifiers.
const maxIDAttempts = 16

type IMessageService interface {
	Create(ctx context.Context, cmd CreateMessageCommand) (domain.Message, error)
	Get(ctx context.Context, id string) (domain.Message, error)
	Sweep(ctx context.Context) (int, error)
	Themes() []theme.Template
}

// CreateMessageCommand carries a creation request. An empty Theme selects
// the catalog default.
type CreateMessageCommand struct {
	Content string `validate:"required,messagelen"`
	Theme   string `validate:"omitempty,theme"`
}

type MessageService struct {
	log        *slog.Logger
	repository repositories.IMessageRepository
	catalog    theme.Catalog
	moderator  moderation.Moderator
	metrics    *observability.Metrics
	validate   *validator.Validate
	ttl        time.Duration
	now        func() time.Time
	newID      func() string
}

type Option func(*MessageService)

// WithClock replaces time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *MessageService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *MessageService) { s.newID = newID }
}

func WithModerator(moderator moderation.Moderator) Option {
	return func(s *MessageService) { s.moderator = moderator }
}

// NewMessageService builds the service. A zero ttl keeps messages forever,
// maxLength is counted in characters.
func NewMessageService(
	log *slog.Logger,
	repository repositories.IMessageRepository,
	catalog theme.Catalog,
	metrics *observability.Metrics,
	ttl time.Duration,
	maxLength int,
	opts ...Option,
) *MessageService {
	validate := validator.New()
	validate.RegisterAlias("messagelen", fmt.Sprintf("max=%d", maxLength))
	_ = validate.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return catalog.Has(fl.Field().String())
	})

	s := &MessageService{
		log:        log,
		repository: repository,
		catalog:    catalog,
		metrics:    metrics,
		validate:   validate,
		ttl:        ttl,
		now:        time.Now,
		newID:      NewShortID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewShortID returns the first 8 hexadecimal characters of a random UUID.
func NewShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (s *MessageService) Create(ctx context.Context, cmd CreateMessageCommand) (domain.Message, error) {
	if err := s.validateCommand(cmd); err != nil {
		s.metrics.MessagesRejected.WithLabelValues(rejectionLabel(err)).Inc()
		return domain.Message{}, err
	}

	content := cmd.Content
	if s.moderator.Enabled() {
		censored, words := s.moderator.Censor(content)
		if len(words) > 0 {
			s.log.Info("Message content censored", "matches", len(words))
			s.metrics.MessagesCensored.Inc()
			content = censored
		}
	}

	message := domain.Message{
		Content:   content,
		Theme:     lo.Ternary(cmd.Theme == "", s.catalog.Default().ID, cmd.Theme),
		Lang:      detectLanguage(content),
		CreatedAt: s.now().UTC(),
	}
	if err := s.insertWithFreshID(&message); err != nil {
		return domain.Message{}, err
	}
	s.metrics.MessagesCreated.WithLabelValues(message.Theme).Inc()
	s.log.Debug("Message created", "id", message.ID, "theme", message.Theme, "lang", message.Lang)

	if _, err := s.Sweep(ctx); err != nil {
		s.log.Warn("Sweep after create failed", "error", err)
	}
	return message, nil
}

func (s *MessageService) insertWithFreshID(message *domain.Message) error {
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		message.ID = s.newID()
		err := s.repository.Insert(*message)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, errors.ErrAlreadyExists) {
			return err
		}
		s.metrics.IDCollisions.Inc()
		s.log.Debug("Identifier already taken, retrying", "id", message.ID, "attempt", attempt)
	}
	return errors.ErrIDSpaceExhausted
}

// Get returns the message or errors.ErrNotFound. An expired message is
// deleted on the way out and reported as not found.
func (s *MessageService) Get(_ context.Context, id string) (domain.Message, error) {
	message, err := s.repository.Get(id)
	if err != nil {
		return domain.Message{}, err
	}
	if message.Expired(s.now(), s.ttl) {
		if err := s.repository.Delete(id); err != nil {
			s.log.Warn("Could not delete expired message", "id", id, "error", err)
		} else {
			s.metrics.MessagesExpired.Inc()
		}
		return domain.Message{}, errors.ErrNotFound
	}
	return message, nil
}

// Sweep purges every expired message and returns how many were removed.
func (s *MessageService) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deleted, err := s.repository.DeleteCreatedBefore(s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.metrics.MessagesExpired.Add(float64(deleted))
		s.log.Info("Expired messages purged", "count", deleted)
	}
	return deleted, nil
}

func (s *MessageService) Themes() []theme.Template {
	return s.catalog.All()
}

func (s *MessageService) validateCommand(cmd CreateMessageCommand) error {
	err := s.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	fieldErr := validationErrors[0]
	switch {
	case fieldErr.Field() == "Content" && fieldErr.ActualTag() == "required":
		return errors.ErrMessageRequired
	case fieldErr.Field() == "Content" && fieldErr.ActualTag() == "max":
		return errors.ErrMessageTooLong
	case fieldErr.Field() == "Theme":
		return errors.ErrUnknownTheme
	default:
		return fmt.Errorf("%w: %s", errors.ErrValidation, fieldErr.Error())
	}
}

func rejectionLabel(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrMessageRequired):
		return "required"
	case stderrors.Is(err, errors.ErrMessageTooLong):
		return "too_long"
	case stderrors.Is(err, errors.ErrUnknownTheme):
		return "unknown_theme"
	default:
		return "other"
	}
}

// detectLanguage returns an ISO 639-1 code, or "" when the guess is unreliable.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
