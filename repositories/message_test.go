package repositories

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"terminal-messenger/domain"
	"terminal-messenger/errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

type repositoryFactory func(t *testing.T) IMessageRepository

func factories() map[string]repositoryFactory {
	return map[string]repositoryFactory{
		"memory": func(t *testing.T) IMessageRepository {
			return NewMemoryMessageRepository()
		},
		"file": func(t *testing.T) IMessageRepository {
			repo, err := NewFileMessageRepository(filepath.Join(t.TempDir(), "messages.json"), slog.Default())
			require.NoError(t, err)
			return repo
		},
		"badger": func(t *testing.T) IMessageRepository {
			db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewBadgerMessageRepository(db, slog.Default(), 24*time.Hour)
		},
	}
}

func message(id string, at time.Time) domain.Message {
	return domain.Message{
		ID:        id,
		Content:   "this message will self destruct in 24 hours",
		Theme:     "classic",
		Lang:      "en",
		CreatedAt: at,
	}
}

func requireSameMessage(req *require.Assertions, expected, actual domain.Message) {
	req.Equal(expected.ID, actual.ID)
	req.Equal(expected.Content, actual.Content)
	req.Equal(expected.Theme, actual.Theme)
	req.Equal(expected.Lang, actual.Lang)
	req.True(expected.CreatedAt.Equal(actual.CreatedAt), "createdAt %v != %v", expected.CreatedAt, actual.CreatedAt)
}

func TestMessageRepositories(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			t.Run("should round trip an inserted message", func(t *testing.T) {
				req := require.New(t)
				repo := factory(t)
				expected := message("abc123de", time.Now().UTC())
				expected.Content = "héllo wörld ✨ with \"quotes\" and\nnewlines"

				req.NoError(repo.Insert(expected))
				actual, err := repo.Get(expected.ID)
				req.NoError(err)
				requireSameMessage(req, expected, actual)
			})

			t.Run("should refuse a taken identifier", func(t *testing.T) {
				req := require.New(t)
				repo := factory(t)
				req.NoError(repo.Insert(message("abc123de", time.Now().UTC())))

				err := repo.Insert(message("abc123de", time.Now().UTC()))
				req.ErrorIs(err, errors.ErrAlreadyExists)
			})

			t.Run("should return not found for an unknown identifier", func(t *testing.T) {
				_, err := factory(t).Get("nope0000")
				require.ErrorIs(t, err, errors.ErrNotFound)
			})

			t.Run("should delete and tolerate deleting twice", func(t *testing.T) {
				req := require.New(t)
				repo := factory(t)
				req.NoError(repo.Insert(message("abc123de", time.Now().UTC())))

				req.NoError(repo.Delete("abc123de"))
				req.NoError(repo.Delete("abc123de"))
				_, err := repo.Get("abc123de")
				req.ErrorIs(err, errors.ErrNotFound)
			})

			t.Run("should delete only messages created strictly before the cutoff", func(t *testing.T) {
				req := require.New(t)
				repo := factory(t)
				cutoff := time.Now().UTC().Truncate(time.Second)
				req.NoError(repo.Insert(message("old00001", cutoff.Add(-2*time.Hour))))
				req.NoError(repo.Insert(message("old00002", cutoff.Add(-time.Nanosecond))))
				req.NoError(repo.Insert(message("edge0001", cutoff)))
				req.NoError(repo.Insert(message("new00001", cutoff.Add(time.Minute))))

				deleted, err := repo.DeleteCreatedBefore(cutoff)
				req.NoError(err)
				req.Equal(2, deleted)

				messages, err := repo.List()
				req.NoError(err)
				req.Len(messages, 2)
				req.Equal("edge0001", messages[0].ID)
				req.Equal("new00001", messages[1].ID)
			})

			t.Run("should list messages oldest first", func(t *testing.T) {
				req := require.New(t)
				repo := factory(t)
				now := time.Now().UTC()
				for i := 3; i >= 1; i-- {
					req.NoError(repo.Insert(message(fmt.Sprintf("msg0000%d", i), now.Add(time.Duration(i)*time.Minute))))
				}

				messages, err := repo.List()
				req.NoError(err)
				req.Len(messages, 3)
				req.Equal([]string{"msg00001", "msg00002", "msg00003"},
					[]string{messages[0].ID, messages[1].ID, messages[2].ID})
			})

			t.Run("should keep every concurrent insert", func(t *testing.T) {
				req := require.New(t)
				repo := factory(t)
				var wg sync.WaitGroup
				errs := make(chan error, 20)
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs <- repo.Insert(message(fmt.Sprintf("conc%04d", i), time.Now().UTC()))
					}(i)
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					req.NoError(err)
				}
				messages, err := repo.List()
				req.NoError(err)
				req.Len(messages, 20)
			})
		})
	}
}

func TestFileMessageRepository_PersistedLayout(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "data", "messages.json")
	repo, err := NewFileMessageRepository(path, slog.Default())
	req.NoError(err)

	data, err := os.ReadFile(path)
	req.NoError(err)
	req.JSONEq(`{}`, string(data))

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	req.NoError(repo.Insert(domain.Message{ID: "abc123de", Content: "hello world", Theme: "classic", CreatedAt: at}))

	data, err = os.ReadFile(path)
	req.NoError(err)
	req.JSONEq(`{"abc123de": {"id": "abc123de", "message": "hello world", "theme": "classic", "createdAt": "2026-10-19T12:00:00Z"}}`, string(data))
}

func TestFileMessageRepository_SurvivesReopen(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "messages.json")
	repo, err := NewFileMessageRepository(path, slog.Default())
	req.NoError(err)
	expected := message("abc123de", time.Now().UTC())
	req.NoError(repo.Insert(expected))

	reopened, err := NewFileMessageRepository(path, slog.Default())
	req.NoError(err)
	actual, err := reopened.Get("abc123de")
	req.NoError(err)
	requireSameMessage(req, expected, actual)
}

func TestFileMessageRepository_CorruptFileIsInternalError(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "messages.json")
	req.NoError(os.WriteFile(path, []byte("{not json"), 0o600))
	repo, err := NewFileMessageRepository(path, slog.Default())
	req.NoError(err)

	_, err = repo.Get("abc123de")
	req.ErrorIs(err, errors.ErrInternal)
	err = repo.Insert(message("abc123de", time.Now().UTC()))
	req.ErrorIs(err, errors.ErrInternal)

	// The corrupt content must not have been overwritten.
	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Equal("{not json", string(data))
}

func TestBadgerMessageRepository_SkipsUndecodableValues(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	repo := NewBadgerMessageRepository(db, slog.Default(), 0)

	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("msg:broken00"), []byte("garbage"))
	}))
	req.NoError(repo.Insert(message("abc123de", time.Now().UTC())))

	messages, err := repo.List()
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("abc123de", messages[0].ID)
}

func TestInspectMapper(t *testing.T) {
	req := require.New(t)
	row := InspectMapper("msg:abc123de", []byte(`{"id":"abc123de","message":"hello world","theme":"cat","createdAt":"2026-10-19T12:00:00Z"}`))
	req.Equal("cat", row.Type)
	req.Equal("hello world", row.Detail)

	broken := InspectMapper("msg:broken", []byte("not json"))
	req.Equal("Error: unmarshal failed", broken.Detail)
}
