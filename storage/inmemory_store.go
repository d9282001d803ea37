package storage

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const updateBufferSize = 255

type InmemoryStore struct {
	// mu guards values and updateChans
	mu          sync.Mutex
	values      []byte
	updateChans []chan *Update

	// dropped counts updates not delivered because a listener fell behind
	dropped int

	// stop will be closed when Close() is called
	stop      chan struct{}
	closeOnce sync.Once
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values:      []byte(""),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.closeOnce.Do(func() {
		close(i.stop)

		i.mu.Lock()
		defer i.mu.Unlock()

		for _, updateChan := range i.updateChans {
			close(updateChan)
		}
		i.updateChans = nil
	})

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key []byte, value interface{}) error {
	if !i.isRunning() {
		return ErrClosed
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	values, err := sjson.SetBytes(i.values, string(key), value)
	if err != nil {
		return err
	}
	i.values = values

	i.publishLocked(&Update{
		Key:   key,
		Value: []byte(gjson.GetBytes(i.values, string(key)).Raw),
	})

	return nil
}

// Get returns the raw JSON at key, or nil if there is nothing there.
func (i *InmemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	result := gjson.GetBytes(i.values, string(key))
	if !result.Exists() {
		return nil, nil
	}

	// copy, the document is rewritten on every Set
	return []byte(result.Raw), nil
}

// Delete removes key. Deleting a key that does not exist is not an error and
// publishes nothing.
func (i *InmemoryStore) Delete(ctx context.Context, key []byte) error {
	if !i.isRunning() {
		return ErrClosed
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !gjson.GetBytes(i.values, string(key)).Exists() {
		return nil
	}

	values, err := sjson.DeleteBytes(i.values, string(key))
	if err != nil {
		return err
	}
	i.values = values

	i.publishLocked(&Update{Key: key, Deleted: true})

	return nil
}

func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, updateBufferSize)

	if i.isRunning() {
		i.updateChans = append(i.updateChans, updateChan)
	} else {
		close(updateChan)
	}

	return updateChan
}

func (i *InmemoryStore) Restore(values []byte) error {
	if len(values) > 0 && !gjson.ValidBytes(values) {
		return &RestoreError{Size: len(values)}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = append([]byte(nil), values...)
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return append([]byte(nil), i.values...), nil
}

// Dropped returns how many updates were not delivered to a listener whose
// buffer was full.
func (i *InmemoryStore) Dropped() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.dropped
}

func (i *InmemoryStore) publishLocked(update *Update) {
	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:
		default:
			i.dropped++
		}
	}
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
