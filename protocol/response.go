package protocol

import (
	"errors"
	"regexp"
	"strings"
)

type ResponseType string

const (
	RespSuccess ResponseType = "Success"
	RespError   ResponseType = "Error"
	RespFollows ResponseType = "Follows"
	RespGoodbye ResponseType = "Goodbye"
	RespPong    ResponseType = "Pong"
	RespUnknown ResponseType = "Unknown"
)

var responseTypes = []ResponseType{RespSuccess, RespError, RespFollows, RespGoodbye, RespPong}

// ParseResponseType maps the text of a Response field onto a ResponseType.
// Unrecognised text is RespUnknown.
func ParseResponseType(s string) ResponseType {
	s = strings.TrimSpace(s)
	for _, t := range responseTypes {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}

	return RespUnknown
}

// Response is the manager's reply to an action.
type Response struct {
	*PropertyMap

	Type ResponseType
}

func ParseResponse(raw string) *Response {
	p := ParsePropertyMap(raw)

	return &Response{
		PropertyMap: p,
		Type:        ParseResponseType(p.Get(FieldResponse)),
	}
}

func (r *Response) ActionID() string {
	return r.Get(FieldActionID)
}

func (r *Response) Message() string {
	return r.Get(FieldMessage)
}

func (r *Response) IsSuccess() bool {
	return r.Type == RespSuccess
}

// ErrorOrNil returns an error if the response contains an error. Otherwise it
// returns nil.
func (r *Response) ErrorOrNil() error {
	if r.Type == RespError {
		msg := r.Message()
		if msg == "" {
			msg = "manager returned an error response"
		}
		return errors.New(msg)
	}

	return nil
}

// ChallengeResponse carries the nonce issued for a Challenge action.
type ChallengeResponse struct {
	*Response
}

func (c ChallengeResponse) Challenge() string {
	return c.Get("Challenge")
}

// CommandResponse carries the free-text output of a Command action.
type CommandResponse struct {
	*Response
}

func (c CommandResponse) Output() string {
	if output := c.Unparsed(); output != "" {
		return output
	}

	// Newer managers send the output as repeated Output fields, which collapse
	// into a single one
	return c.Get("Output")
}

type GetVarResponse struct {
	*Response
}

func (g GetVarResponse) Variable() string { return g.Get("Variable") }
func (g GetVarResponse) Value() string    { return g.Get("Value") }

var actionIDPattern = regexp.MustCompile(`(?im)^actionid:[ \t]*(\S+)`)

// ExtractActionID finds the ActionID in a raw message without fully decoding
// it. It returns an empty string when there is none.
func ExtractActionID(raw string) string {
	m := actionIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}

	return m[1]
}
