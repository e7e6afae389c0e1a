package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"terminal-messenger/domain"
	"terminal-messenger/errors"
	"time"

	"github.com/samber/lo"
)

// FileMessageRepository persists every message in a single JSON object keyed
// by identifier. Each operation reads the whole file and each mutation
// rewrites it. The mutex makes the read-modify-write cycle single-writer
// within the process; separate processes sharing the file still race.
type FileMessageRepository struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

func NewFileMessageRepository(path string, log *slog.Logger) (*FileMessageRepository, error) {
	f := &FileMessageRepository{path: path, log: log}
	if err := f.ensureFile(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileMessageRepository) Insert(message domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := snapshot[message.ID]; ok {
		return errors.ErrAlreadyExists
	}
	snapshot[message.ID] = fromDomainMessage(message)
	return f.write(snapshot)
}

func (f *FileMessageRepository) Get(id string) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, err := f.read()
	if err != nil {
		return domain.Message{}, err
	}
	diskMessage, ok := snapshot[id]
	if !ok {
		return domain.Message{}, errors.ErrNotFound
	}
	return toDomainMessage(diskMessage), nil
}

func (f *FileMessageRepository) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := snapshot[id]; !ok {
		return nil
	}
	delete(snapshot, id)
	return f.write(snapshot)
}

func (f *FileMessageRepository) DeleteCreatedBefore(cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, err := f.read()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for id, diskMessage := range snapshot {
		if diskMessage.CreatedAt.Before(cutoff) {
			delete(snapshot, id)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, f.write(snapshot)
}

func (f *FileMessageRepository) List() ([]domain.Message, error) {
	f.mu.Lock()
	snapshot, err := f.read()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	messages := lo.MapToSlice(snapshot, func(_ string, dm DiskMessage) domain.Message {
		return toDomainMessage(dm)
	})
	sortByCreation(messages)
	return messages, nil
}

func (f *FileMessageRepository) ensureFile() error {
	_, err := os.Stat(f.path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %s: %v", errors.ErrInternal, f.path, err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %v", errors.ErrInternal, dir, err)
		}
	}
	f.log.Info("Creating messages file", "path", f.path)
	return f.write(map[string]DiskMessage{})
}

func (f *FileMessageRepository) read() (map[string]DiskMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]DiskMessage{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", errors.ErrInternal, f.path, err)
	}
	snapshot := map[string]DiskMessage{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", errors.ErrInternal, f.path, err)
	}
	if snapshot == nil {
		snapshot = map[string]DiskMessage{}
	}
	return snapshot, nil
}

// write replaces the snapshot through a temporary file so a crash mid-write
// never leaves a truncated file behind.
func (f *FileMessageRepository) write(snapshot map[string]DiskMessage) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", errors.ErrInternal, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", errors.ErrInternal, f.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", errors.ErrInternal, f.path, err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", errors.ErrInternal, f.path, err)
	}
	return nil
}
