package protocol

import (
	"sort"
	"strconv"
	"strings"
)

// Action names understood by the typed constructors below
const (
	ActionPing            = "Ping"
	ActionLogin           = "Login"
	ActionLogoff          = "Logoff"
	ActionChallenge       = "Challenge"
	ActionCommand         = "Command"
	ActionEvents          = "Events"
	ActionAbsoluteTimeout = "AbsoluteTimeout"
	ActionHangup          = "Hangup"
	ActionOriginate       = "Originate"
	ActionGetVar          = "Getvar"
	ActionSetVar          = "Setvar"
)

// AuthTypeMD5 is the only challenge type the manager supports
const AuthTypeMD5 = "MD5"

func NewPingAction() *Action {
	return NewAction(ActionPing)
}

func NewLogoffAction() *Action {
	return NewAction(ActionLogoff)
}

type LoginAction struct {
	*Action
}

// NewLoginAction logs in with a plaintext secret.
func NewLoginAction(username, secret string) *LoginAction {
	l := &LoginAction{Action: NewAction(ActionLogin)}
	l.Set("Username", username)
	l.Set("Secret", secret)
	return l
}

// NewDigestLoginAction logs in with a key derived from a previously issued challenge.
func NewDigestLoginAction(username, authType, key string) *LoginAction {
	l := &LoginAction{Action: NewAction(ActionLogin)}
	l.Set("Username", username)
	l.Set("AuthType", authType)
	l.Set("Key", key)
	return l
}

func (l *LoginAction) Username() string { return l.Get("Username") }
func (l *LoginAction) Secret() string   { return l.Get("Secret") }
func (l *LoginAction) AuthType() string { return l.Get("AuthType") }
func (l *LoginAction) Key() string      { return l.Get("Key") }
func (l *LoginAction) Events() string   { return l.Get("Events") }

// SetEvents sets the event mask, e.g. "on", "off" or "call,system".
func (l *LoginAction) SetEvents(mask string) {
	l.Set("Events", mask)
}

type ChallengeAction struct {
	*Action
}

func NewChallengeAction(authType string) *ChallengeAction {
	c := &ChallengeAction{Action: NewAction(ActionChallenge)}
	c.Set("AuthType", authType)
	return c
}

func (c *ChallengeAction) AuthType() string { return c.Get("AuthType") }

// CommandAction runs a CLI command. The output arrives as a `Response: Follows` message.
type CommandAction struct {
	*Action
}

func NewCommandAction(command string) *CommandAction {
	c := &CommandAction{Action: NewAction(ActionCommand)}
	c.Set("Command", command)
	return c
}

func (c *CommandAction) Command() string { return c.Get("Command") }

type EventsAction struct {
	*Action
}

func NewEventsAction(mask string) *EventsAction {
	e := &EventsAction{Action: NewAction(ActionEvents)}
	e.Set("EventMask", mask)
	return e
}

func (e *EventsAction) EventMask() string { return e.Get("EventMask") }

// AbsoluteTimeoutAction sets the maximum duration of a call, in seconds. A
// timeout of 0 cancels it.
type AbsoluteTimeoutAction struct {
	*Action
}

func NewAbsoluteTimeoutAction(channel string, timeout int) *AbsoluteTimeoutAction {
	a := &AbsoluteTimeoutAction{Action: NewAction(ActionAbsoluteTimeout)}
	a.Set("Channel", channel)
	a.Set("Timeout", strconv.Itoa(timeout))
	return a
}

func (a *AbsoluteTimeoutAction) Channel() string { return a.Get("Channel") }

func (a *AbsoluteTimeoutAction) Timeout() int {
	timeout, _ := strconv.Atoi(a.Get("Timeout"))
	return timeout
}

type HangupAction struct {
	*Action
}

func NewHangupAction(channel string) *HangupAction {
	h := &HangupAction{Action: NewAction(ActionHangup)}
	h.Set("Channel", channel)
	return h
}

func (h *HangupAction) Channel() string { return h.Get("Channel") }

func (h *HangupAction) SetCause(cause int) {
	h.Set("Cause", strconv.Itoa(cause))
}

type OriginateAction struct {
	*Action
}

// NewOriginateAction places a call on channel. Use SetExtension or
// SetApplication to say where it goes once answered.
func NewOriginateAction(channel string) *OriginateAction {
	o := &OriginateAction{Action: NewAction(ActionOriginate)}
	o.Set("Channel", channel)
	return o
}

func (o *OriginateAction) Channel() string { return o.Get("Channel") }

func (o *OriginateAction) SetExtension(context, exten string, priority int) {
	o.Set("Context", context)
	o.Set("Exten", exten)
	o.Set("Priority", strconv.Itoa(priority))
}

func (o *OriginateAction) SetApplication(app, data string) {
	o.Set("Application", app)
	o.Set("Data", data)
}

// SetTimeout is in milliseconds
func (o *OriginateAction) SetTimeout(ms int) {
	o.Set("Timeout", strconv.Itoa(ms))
}

func (o *OriginateAction) SetCallerID(callerID string) {
	o.Set("CallerID", callerID)
}

func (o *OriginateAction) SetAsync(async bool) {
	o.Set("Async", strconv.FormatBool(async))
}

// SetVariables sets channel variables as a single comma separated Variable
// field, sorted by name so the output is stable.
func (o *OriginateAction) SetVariables(vars map[string]string) {
	if len(vars) == 0 {
		return
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+vars[name])
	}

	o.Set("Variable", strings.Join(pairs, ","))
}

type GetVarAction struct {
	*Action
}

// NewGetVarAction reads a variable. An empty channel reads a global variable.
func NewGetVarAction(channel, variable string) *GetVarAction {
	g := &GetVarAction{Action: NewAction(ActionGetVar)}
	if channel != "" {
		g.Set("Channel", channel)
	}
	g.Set("Variable", variable)
	return g
}

type SetVarAction struct {
	*Action
}

func NewSetVarAction(channel, variable, value string) *SetVarAction {
	s := &SetVarAction{Action: NewAction(ActionSetVar)}
	if channel != "" {
		s.Set("Channel", channel)
	}
	s.Set("Variable", variable)
	s.Set("Value", value)
	return s
}
