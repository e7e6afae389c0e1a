package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"terminal-messenger/domain"
	"terminal-messenger/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

const messagePrefix = "msg:"

// ttlSlack keeps badger's own expiry behind the service's. Badger stores
// expiry with second precision, so without slack an entry could vanish
// slightly before the service considers it stale.
const ttlSlack = time.Minute

// BadgerMessageRepository stores each message under "msg:{id}" with its JSON
// encoded DiskMessage as value.
type BadgerMessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	ttl time.Duration
}

// NewBadgerMessageRepository returns a repository on an already opened db.
// With a positive ttl, entries carry a native badger TTL so that stale
// messages nobody asks for again are still reclaimed by compaction.
func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger, ttl time.Duration) *BadgerMessageRepository {
	return &BadgerMessageRepository{db: db, log: log, ttl: ttl}
}

func messageKey(id string) []byte {
	return []byte(messagePrefix + id)
}

// Insert checks and writes in a single transaction, so two concurrent inserts
// of one id cannot both succeed: the loser gets a conflict.
func (b *BadgerMessageRepository) Insert(message domain.Message) error {
	data, err := json.Marshal(fromDomainMessage(message))
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", errors.ErrInternal, err)
	}
	key := messageKey(message.ID)
	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return errors.ErrAlreadyExists
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry := badger.NewEntry(key, data)
		if b.ttl > 0 {
			entry = entry.WithTTL(b.ttl + ttlSlack)
		}
		return txn.SetEntry(entry)
	})
	switch {
	case err == nil, stderrors.Is(err, errors.ErrAlreadyExists):
		return err
	case stderrors.Is(err, badger.ErrConflict):
		// Someone else wrote this id meanwhile.
		return errors.ErrAlreadyExists
	default:
		return fmt.Errorf("%w: insert %s: %v", errors.ErrInternal, message.ID, err)
	}
}

func (b *BadgerMessageRepository) Get(id string) (domain.Message, error) {
	var diskMessage DiskMessage
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &diskMessage)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: get %s: %v", errors.ErrInternal, id, err)
	}
	return toDomainMessage(diskMessage), nil
}

func (b *BadgerMessageRepository) Delete(id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(messageKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", errors.ErrInternal, id, err)
	}
	return nil
}

// DeleteCreatedBefore scans every message. Keys are not ordered by creation
// time, so there is no cheaper range to walk.
func (b *BadgerMessageRepository) DeleteCreatedBefore(cutoff time.Time) (int, error) {
	var stale [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		return b.scan(txn, func(key []byte, dm DiskMessage) {
			if dm.CreatedAt.Before(cutoff) {
				stale = append(stale, key)
			}
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: scan messages: %v", errors.ErrInternal, err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("%w: delete stale messages: %v", errors.ErrInternal, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("%w: delete stale messages: %v", errors.ErrInternal, err)
	}
	b.log.Debug("Deleted stale messages", "count", len(stale), "cutoff", cutoff)
	return len(stale), nil
}

func (b *BadgerMessageRepository) List() ([]domain.Message, error) {
	var messages []domain.Message
	err := b.db.View(func(txn *badger.Txn) error {
		return b.scan(txn, func(_ []byte, dm DiskMessage) {
			messages = append(messages, toDomainMessage(dm))
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", errors.ErrInternal, err)
	}
	sortByCreation(messages)
	return messages, nil
}

// scan walks every message with a prefix iterator. Undecodable values are
// logged and skipped rather than failing the whole walk.
func (b *BadgerMessageRepository) scan(txn *badger.Txn, fn func(key []byte, dm DiskMessage)) error {
	prefix := []byte(messagePrefix)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		var dm DiskMessage
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dm)
		})
		if err != nil {
			b.log.Warn("Skipping undecodable message", "key", string(key), "error", err)
			continue
		}
		fn(key, dm)
	}
	return nil
}

// InspectMapper describes a stored message for the badger debug inspector.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	var dm DiskMessage
	if err := json.Unmarshal(val, &dm); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = dm.Theme
	row.Detail = dm.Message
	return row
}
