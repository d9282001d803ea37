package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/luma/amictl/protocol"
)

// ResponseCallback receives the response to an action sent with SendAction,
// or a nil response and ErrTimeout if none arrived in time.
type ResponseCallback func(resp *protocol.Response, err error)

// listener waits for the response to a single action. Exactly one of deliver
// or fail is called, exactly once.
type listener interface {
	deliver(resp *protocol.Response)
	fail(err error)
}

type outcome struct {
	resp *protocol.Response
	err  error
}

// syncListener wakes a caller blocked in SyncSendAction.
type syncListener struct {
	done chan outcome
}

func newSyncListener() *syncListener {
	return &syncListener{done: make(chan outcome, 1)}
}

func (s *syncListener) deliver(resp *protocol.Response) {
	s.done <- outcome{resp: resp}
}

func (s *syncListener) fail(err error) {
	s.done <- outcome{err: err}
}

// asyncListener runs a callback. A nil callback swallows the response.
type asyncListener struct {
	callback ResponseCallback
}

func (a *asyncListener) deliver(resp *protocol.Response) {
	if a.callback != nil {
		a.callback(resp, nil)
	}
}

func (a *asyncListener) fail(err error) {
	if a.callback != nil {
		a.callback(nil, err)
	}
}

type pendingListener struct {
	listener listener
	timer    *time.Timer
}

// correlationTable maps action IDs to the listeners awaiting their responses.
//
// Each entry leaves the table exactly once: through resolve when its response
// arrives, or through expire when its timeout elapses. Whichever removes the
// entry first wins, the other finds nothing.
type correlationTable struct {
	mu      sync.Mutex
	pending map[string]*pendingListener

	onTimeout func(actionID string)
}

func newCorrelationTable(onTimeout func(actionID string)) *correlationTable {
	return &correlationTable{
		pending:   make(map[string]*pendingListener),
		onTimeout: onTimeout,
	}
}

// register records l as awaiting actionID. If no response arrives within
// timeout the listener is expired with ErrTimeout. A timeout <= 0 never expires.
func (t *correlationTable) register(actionID string, l listener, timeout time.Duration) error {
	if actionID == "" {
		return ErrEmptyActionID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[actionID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateActionID, actionID)
	}

	entry := &pendingListener{listener: l}

	if timeout > 0 {
		entry.timer = time.AfterFunc(timeout, func() {
			t.expireEntry(actionID, entry)
		})
	}

	t.pending[actionID] = entry

	return nil
}

// resolve removes and returns the listener for actionID.
func (t *correlationTable) resolve(actionID string) (listener, bool) {
	t.mu.Lock()
	entry, ok := t.pending[actionID]
	if ok {
		delete(t.pending, actionID)
	}
	t.mu.Unlock()

	if !ok {
		return nil, false
	}

	if entry.timer != nil {
		entry.timer.Stop()
	}

	return entry.listener, true
}

// expire removes the listener for actionID, if it is still pending, and fails
// it with ErrTimeout. It reports whether there was anything to expire.
func (t *correlationTable) expire(actionID string) bool {
	l, ok := t.resolve(actionID)
	if !ok {
		return false
	}

	t.timedOut(actionID, l)
	return true
}

// drop removes the listener for actionID without signalling it.
func (t *correlationTable) drop(actionID string) bool {
	_, ok := t.resolve(actionID)
	return ok
}

// expireEntry only expires actionID if it is still the entry the timer was
// started for.
func (t *correlationTable) expireEntry(actionID string, entry *pendingListener) {
	t.mu.Lock()
	current, ok := t.pending[actionID]
	if !ok || current != entry {
		t.mu.Unlock()
		return
	}
	delete(t.pending, actionID)
	t.mu.Unlock()

	t.timedOut(actionID, entry.listener)
}

func (t *correlationTable) timedOut(actionID string, l listener) {
	if t.onTimeout != nil {
		t.onTimeout(actionID)
	}

	l.fail(fmt.Errorf("%w: action %s", ErrTimeout, actionID))
}

// failAll empties the table, failing every listener with err.
func (t *correlationTable) failAll(err error) int {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]*pendingListener)
	t.mu.Unlock()

	for _, entry := range pending {
		if entry.timer != nil {
			entry.timer.Stop()
		}

		entry.listener.fail(err)
	}

	return len(pending)
}

func (t *correlationTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}
