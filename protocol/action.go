package protocol

import (
	"github.com/google/uuid"
)

const (
	FieldAction    = "Action"
	FieldActionID  = "ActionID"
	FieldResponse  = "Response"
	FieldEvent     = "Event"
	FieldMessage   = "Message"
	FieldPrivilege = "Privilege"
)

// NewActionID returns a fresh, unique action identifier.
var NewActionID = func() string {
	return uuid.NewString()
}

// Action is a command sent to the manager. It is correlated with its response
// through the ActionID field.
type Action struct {
	*PropertyMap
}

// NewAction creates an action with the given name and no ActionID. The ID is
// assigned the first time the action is sent.
func NewAction(name string) *Action {
	a := &Action{PropertyMap: NewPropertyMap()}
	a.Set(FieldAction, name)
	return a
}

func (a *Action) Name() string {
	return a.Get(FieldAction)
}

// ID returns the action's identifier, generating one on the first call. A
// caller supplied ActionID field is used as is.
func (a *Action) ID() string {
	if id := a.Get(FieldActionID); id != "" {
		return id
	}

	id := NewActionID()
	a.Set(FieldActionID, id)
	return id
}
