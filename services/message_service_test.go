package services_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"terminal-messenger/domain"
	"terminal-messenger/domain/theme"
	"terminal-messenger/errors"
	"terminal-messenger/mocks"
	"terminal-messenger/moderation"
	"terminal-messenger/observability"
	"terminal-messenger/repositories"
	"terminal-messenger/services"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sequence(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func newService(repo repositories.IMessageRepository, ttl time.Duration, opts ...services.Option) (*services.MessageService, *observability.Metrics) {
	metrics := observability.NewNopMetrics()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	return services.NewMessageService(log, repo, theme.MustCatalog(), metrics, ttl, 500, opts...), metrics
}

func TestMessageService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should store a message with the default theme", func(t *testing.T) {
		req := require.New(t)
		clock := &fakeClock{now: t0}
		repo := repositories.NewMemoryMessageRepository()
		svc, metrics := newService(repo, 0, services.WithClock(clock.Now))

		created, err := svc.Create(ctx, services.CreateMessageCommand{Content: "hello world"})
		req.NoError(err)
		req.Equal(theme.DefaultID, created.Theme)
		req.Equal("hello world", created.Content)
		req.Equal(t0, created.CreatedAt)
		req.Regexp(regexp.MustCompile(`^[0-9a-f]{8}$`), created.ID)

		got, err := svc.Get(ctx, created.ID)
		req.NoError(err)
		req.Equal(created, got)
		req.Equal(1.0, testutil.ToFloat64(metrics.MessagesCreated.WithLabelValues(theme.DefaultID)))
	})

	t.Run("should keep the requested theme", func(t *testing.T) {
		req := require.New(t)
		svc, _ := newService(repositories.NewMemoryMessageRepository(), 0)

		created, err := svc.Create(ctx, services.CreateMessageCommand{Content: "meow", Theme: "cat"})
		req.NoError(err)
		req.Equal("cat", created.Theme)
	})

	t.Run("should accept a message of exactly the maximum length in characters", func(t *testing.T) {
		req := require.New(t)
		svc, _ := newService(repositories.NewMemoryMessageRepository(), 0)

		_, err := svc.Create(ctx, services.CreateMessageCommand{Content: strings.Repeat("é", 500)})
		req.NoError(err)
	})

	t.Run("should give every message a distinct identifier", func(t *testing.T) {
		req := require.New(t)
		svc, _ := newService(repositories.NewMemoryMessageRepository(), 0)

		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			created, err := svc.Create(ctx, services.CreateMessageCommand{Content: fmt.Sprintf("message %d", i)})
			req.NoError(err)
			req.False(seen[created.ID], "identifier %s issued twice", created.ID)
			seen[created.ID] = true
		}
	})

	t.Run("should mask censored words before storing", func(t *testing.T) {
		req := require.New(t)
		moderator, err := moderation.NewModerator([]string{"badword"}, '*', logs.GetLoggerFromLevel(slog.LevelError))
		req.NoError(err)
		repo := repositories.NewMemoryMessageRepository()
		svc, metrics := newService(repo, 0, services.WithModerator(moderator))

		created, err := svc.Create(ctx, services.CreateMessageCommand{Content: "this is a badword"})
		req.NoError(err)
		req.NotContains(created.Content, "badword")
		req.Contains(created.Content, "*******")

		stored, err := repo.Get(created.ID)
		req.NoError(err)
		req.Equal(created.Content, stored.Content)
		req.Equal(1.0, testutil.ToFloat64(metrics.MessagesCensored))
	})
}

func TestMessageService_Create_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	svc, metrics := newService(mockRepo, time.Hour)

	tests := []struct {
		name     string
		cmd      services.CreateMessageCommand
		expected error
		label    string
	}{
		{"should reject an empty message", services.CreateMessageCommand{Content: ""}, errors.ErrMessageRequired, "required"},
		{"should reject a message over the limit", services.CreateMessageCommand{Content: strings.Repeat("a", 501)}, errors.ErrMessageTooLong, "too_long"},
		{"should reject an unknown theme", services.CreateMessageCommand{Content: "hi", Theme: "vaporwave"}, errors.ErrUnknownTheme, "unknown_theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			// The store is never reached.
			mockRepo.EXPECT().Insert(gomock.Any()).Times(0)

			_, err := svc.Create(context.Background(), tt.cmd)
			req.ErrorIs(err, tt.expected)
			req.ErrorIs(err, errors.ErrValidation)
			req.Equal(1.0, testutil.ToFloat64(metrics.MessagesRejected.WithLabelValues(tt.label)))
		})
	}
}

func TestMessageService_Create_Identifiers(t *testing.T) {
	ctx := context.Background()

	t.Run("should retry when the identifier is taken", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc, metrics := newService(mockRepo, 0, services.WithIDGenerator(sequence("aaaaaaaa", "bbbbbbbb", "cccccccc")))

		gomock.InOrder(
			mockRepo.EXPECT().Insert(gomock.Any()).Return(errors.ErrAlreadyExists),
			mockRepo.EXPECT().Insert(gomock.Any()).Return(errors.ErrAlreadyExists),
			mockRepo.EXPECT().Insert(gomock.Any()).DoAndReturn(func(m domain.Message) error {
				req.Equal("cccccccc", m.ID)
				return nil
			}),
		)

		created, err := svc.Create(ctx, services.CreateMessageCommand{Content: "hello"})
		req.NoError(err)
		req.Equal("cccccccc", created.ID)
		req.Equal(2.0, testutil.ToFloat64(metrics.IDCollisions))
	})

	t.Run("should give up after a bounded number of collisions", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc, _ := newService(mockRepo, 0, services.WithIDGenerator(sequence("aaaaaaaa")))

		mockRepo.EXPECT().Insert(gomock.Any()).Return(errors.ErrAlreadyExists).Times(16)

		_, err := svc.Create(ctx, services.CreateMessageCommand{Content: "hello"})
		req.ErrorIs(err, errors.ErrIDSpaceExhausted)
		req.ErrorIs(err, errors.ErrInternal)
	})

	t.Run("should surface storage failures as internal errors", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc, _ := newService(mockRepo, 0)

		mockRepo.EXPECT().Insert(gomock.Any()).Return(fmt.Errorf("%w: disk full", errors.ErrInternal)).Times(1)

		_, err := svc.Create(ctx, services.CreateMessageCommand{Content: "hello"})
		req.ErrorIs(err, errors.ErrInternal)
		req.Equal(500, errors.MapToHTTPStatus(err))
	})

	t.Run("should succeed even when the sweep after create fails", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc, _ := newService(mockRepo, time.Hour)

		mockRepo.EXPECT().Insert(gomock.Any()).Return(nil).Times(1)
		mockRepo.EXPECT().DeleteCreatedBefore(gomock.Any()).Return(0, stderrors.New("boom")).Times(1)

		_, err := svc.Create(ctx, services.CreateMessageCommand{Content: "hello"})
		req.NoError(err)
	})
}

func TestMessageService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("should report unknown identifiers as not found", func(t *testing.T) {
		req := require.New(t)
		svc, _ := newService(repositories.NewMemoryMessageRepository(), time.Hour)

		_, err := svc.Get(ctx, "deadbeef")
		req.ErrorIs(err, errors.ErrNotFound)
	})

	t.Run("should keep a message exactly ttl old and drop it one instant later", func(t *testing.T) {
		req := require.New(t)
		clock := &fakeClock{now: t0}
		repo := repositories.NewMemoryMessageRepository()
		svc, metrics := newService(repo, time.Hour, services.WithClock(clock.Now))

		created, err := svc.Create(ctx, services.CreateMessageCommand{Content: "short lived"})
		req.NoError(err)

		clock.Advance(time.Hour)
		_, err = svc.Get(ctx, created.ID)
		req.NoError(err)

		clock.Advance(time.Nanosecond)
		_, err = svc.Get(ctx, created.ID)
		req.ErrorIs(err, errors.ErrNotFound)

		// Lazily purged from the store as well.
		_, err = repo.Get(created.ID)
		req.ErrorIs(err, errors.ErrNotFound)
		req.Equal(1.0, testutil.ToFloat64(metrics.MessagesExpired))
	})

	t.Run("should never expire without a ttl", func(t *testing.T) {
		req := require.New(t)
		clock := &fakeClock{now: t0}
		svc, _ := newService(repositories.NewMemoryMessageRepository(), 0, services.WithClock(clock.Now))

		created, err := svc.Create(ctx, services.CreateMessageCommand{Content: "forever"})
		req.NoError(err)

		clock.Advance(10 * 365 * 24 * time.Hour)
		_, err = svc.Get(ctx, created.ID)
		req.NoError(err)
	})
}

func TestMessageService_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("should purge only expired messages", func(t *testing.T) {
		req := require.New(t)
		clock := &fakeClock{now: t0}
		repo := repositories.NewMemoryMessageRepository()
		svc, _ := newService(repo, time.Hour, services.WithClock(clock.Now))

		old, err := svc.Create(ctx, services.CreateMessageCommand{Content: "old"})
		req.NoError(err)
		clock.Advance(30 * time.Minute)
		recent, err := svc.Create(ctx, services.CreateMessageCommand{Content: "recent"})
		req.NoError(err)

		clock.Advance(31 * time.Minute)
		deleted, err := svc.Sweep(ctx)
		req.NoError(err)
		req.Equal(1, deleted)

		_, err = repo.Get(old.ID)
		req.ErrorIs(err, errors.ErrNotFound)
		_, err = repo.Get(recent.ID)
		req.NoError(err)
	})

	t.Run("should not touch the store without a ttl", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc, _ := newService(mockRepo, 0)

		mockRepo.EXPECT().DeleteCreatedBefore(gomock.Any()).Times(0)

		deleted, err := svc.Sweep(ctx)
		req.NoError(err)
		req.Zero(deleted)
	})

	t.Run("should stop on a cancelled context", func(t *testing.T) {
		req := require.New(t)
		svc, _ := newService(repositories.NewMemoryMessageRepository(), time.Hour)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Sweep(cancelled)
		req.ErrorIs(err, context.Canceled)
	})
}

func TestMessageService_Themes(t *testing.T) {
	req := require.New(t)
	svc, _ := newService(repositories.NewMemoryMessageRepository(), 0)

	ids := make([]string, 0)
	for _, tpl := range svc.Themes() {
		ids = append(ids, tpl.ID)
	}
	req.Equal([]string{"classic", "heart", "retro", "cat", "minimal", "alert"}, ids)
}

func TestNewShortID(t *testing.T) {
	req := require.New(t)
	for i := 0; i < 50; i++ {
		req.Regexp(`^[0-9a-f]{8}$`, services.NewShortID())
	}
}
