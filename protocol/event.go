package protocol

import (
	"strings"
)

// Event is an unsolicited notification from the manager.
type Event struct {
	*PropertyMap
}

func ParseEvent(raw string) *Event {
	return &Event{PropertyMap: ParsePropertyMap(raw)}
}

// Name is the value of the mandatory Event field, e.g. "Hangup".
func (e *Event) Name() string {
	return e.Get(FieldEvent)
}

// Privilege returns the privilege classes the event was sent under.
func (e *Event) Privilege() []string {
	privilege := e.Get(FieldPrivilege)
	if privilege == "" {
		return nil
	}

	return strings.Split(privilege, ",")
}

// ActionID is set on events emitted as part of an action's output, e.g. the
// list entries that follow a Status action.
func (e *Event) ActionID() string {
	return e.Get(FieldActionID)
}

// Is reports whether the event has the given name.
func (e *Event) Is(name string) bool {
	return strings.EqualFold(e.Name(), name)
}

// Event names understood by the typed views below
const (
	EventVarSet      = "VarSet"
	EventHangup      = "Hangup"
	EventNewchannel  = "Newchannel"
	EventNewstate    = "Newstate"
	EventFullyBooted = "FullyBooted"
)

type VarSetEvent struct {
	*Event
}

func (v VarSetEvent) Channel() string  { return v.Get("Channel") }
func (v VarSetEvent) UniqueID() string { return v.Get("Uniqueid") }
func (v VarSetEvent) Variable() string { return v.Get("Variable") }
func (v VarSetEvent) Value() string    { return v.Get("Value") }

type HangupEvent struct {
	*Event
}

func (h HangupEvent) Channel() string   { return h.Get("Channel") }
func (h HangupEvent) UniqueID() string  { return h.Get("Uniqueid") }
func (h HangupEvent) Cause() string     { return h.Get("Cause") }
func (h HangupEvent) CauseText() string { return h.Get("Cause-txt") }

type NewchannelEvent struct {
	*Event
}

func (n NewchannelEvent) Channel() string      { return n.Get("Channel") }
func (n NewchannelEvent) UniqueID() string     { return n.Get("Uniqueid") }
func (n NewchannelEvent) ChannelState() string { return n.Get("ChannelState") }
func (n NewchannelEvent) StateDesc() string    { return n.Get("ChannelStateDesc") }
func (n NewchannelEvent) CallerIDNum() string  { return n.Get("CallerIDNum") }
func (n NewchannelEvent) CallerIDName() string { return n.Get("CallerIDName") }
func (n NewchannelEvent) Context() string      { return n.Get("Context") }
func (n NewchannelEvent) Exten() string        { return n.Get("Exten") }

type NewstateEvent struct {
	*Event
}

func (n NewstateEvent) Channel() string      { return n.Get("Channel") }
func (n NewstateEvent) UniqueID() string     { return n.Get("Uniqueid") }
func (n NewstateEvent) ChannelState() string { return n.Get("ChannelState") }
func (n NewstateEvent) StateDesc() string    { return n.Get("ChannelStateDesc") }

type FullyBootedEvent struct {
	*Event
}

func (f FullyBootedEvent) Status() string { return f.Get("Status") }

// Version is the banner the manager sends as soon as a connection is opened,
// e.g. "Asterisk Call Manager/5.0.1".
type Version struct {
	Raw string

	// Product is the text before the last '/', e.g. "Asterisk Call Manager"
	Product string

	// Number is the protocol version, e.g. "5.0.1"
	Number string
}

func ParseVersion(raw string) Version {
	raw = strings.TrimRight(raw, "\r\n")
	v := Version{Raw: raw, Product: raw}

	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		v.Product = raw[:i]
		v.Number = raw[i+1:]
	}

	return v
}

func (v Version) String() string {
	return v.Raw
}
