package storage

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/amictl/protocol"
)

const ChannelsKey = "channels"

// Channel is the state kept for each live channel.
type Channel struct {
	UniqueID     string            `json:"uniqueid"`
	State        string            `json:"state,omitempty"`
	StateDesc    string            `json:"stateDesc,omitempty"`
	CallerIDNum  string            `json:"callerIdNum,omitempty"`
	CallerIDName string            `json:"callerIdName,omitempty"`
	Context      string            `json:"context,omitempty"`
	Exten        string            `json:"exten,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// ChannelKey is the key a channel's state is stored under.
func ChannelKey(channel string, fields ...string) []byte {
	return Path(append([]string{ChannelsKey, channel}, fields...)...)
}

// ChannelTracker folds channel lifecycle events into a Store: Newchannel
// creates a channel, Newstate and VarSet update it, Hangup removes it.
type ChannelTracker struct {
	store Store
	log   *zap.Logger
}

func NewChannelTracker(store Store, log *zap.Logger) *ChannelTracker {
	if log == nil {
		log = zap.NewNop()
	}

	return &ChannelTracker{
		store: store,
		log:   log,
	}
}

// HandleEvent applies event to the store. It has the shape of a connection
// event listener.
func (t *ChannelTracker) HandleEvent(event *protocol.Event) {
	ctx := context.Background()

	var err error

	switch {
	case event.Is(protocol.EventNewchannel):
		err = t.newChannel(ctx, protocol.NewchannelEvent{Event: event})

	case event.Is(protocol.EventNewstate):
		err = t.newState(ctx, protocol.NewstateEvent{Event: event})

	case event.Is(protocol.EventVarSet):
		err = t.varSet(ctx, protocol.VarSetEvent{Event: event})

	case event.Is(protocol.EventHangup):
		err = t.hangup(ctx, protocol.HangupEvent{Event: event})

	default:
		return
	}

	if err != nil {
		t.log.Warn("Failed to apply event",
			zap.String("event", event.Name()),
			zap.Error(err))
	}
}

func (t *ChannelTracker) newChannel(ctx context.Context, e protocol.NewchannelEvent) error {
	if e.Channel() == "" {
		return nil
	}

	return t.store.Set(ctx, ChannelKey(e.Channel()), Channel{
		UniqueID:     e.UniqueID(),
		State:        e.ChannelState(),
		StateDesc:    e.StateDesc(),
		CallerIDNum:  e.CallerIDNum(),
		CallerIDName: e.CallerIDName(),
		Context:      e.Context(),
		Exten:        e.Exten(),
	})
}

func (t *ChannelTracker) newState(ctx context.Context, e protocol.NewstateEvent) error {
	if e.Channel() == "" {
		return nil
	}

	return multierr.Combine(
		t.store.Set(ctx, ChannelKey(e.Channel(), "uniqueid"), e.UniqueID()),
		t.store.Set(ctx, ChannelKey(e.Channel(), "state"), e.ChannelState()),
		t.store.Set(ctx, ChannelKey(e.Channel(), "stateDesc"), e.StateDesc()),
	)
}

func (t *ChannelTracker) varSet(ctx context.Context, e protocol.VarSetEvent) error {
	if e.Channel() == "" || e.Variable() == "" {
		return nil
	}

	return t.store.Set(ctx, ChannelKey(e.Channel(), "variables", e.Variable()), e.Value())
}

func (t *ChannelTracker) hangup(ctx context.Context, e protocol.HangupEvent) error {
	if e.Channel() == "" {
		return nil
	}

	t.log.Debug("Channel hung up",
		zap.String("channel", e.Channel()),
		zap.String("cause", e.CauseText()))

	return t.store.Delete(ctx, ChannelKey(e.Channel()))
}
