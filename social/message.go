package social

import (
	"encoding/json"
	"strings"
)

const (
	SuccessSuffix = "_AUTH_SUCCESS"
	ErrorSuffix   = "_AUTH_ERROR"
)

const (
	MessageInstagramSuccess = "INSTAGRAM" + SuccessSuffix
	MessageInstagramError   = "INSTAGRAM" + ErrorSuffix
	MessageNaverSuccess     = "NAVER" + SuccessSuffix
	MessageNaverError       = "NAVER" + ErrorSuffix
)

// Message is the single payload a popup callback posts to its opener.
type Message struct {
	Type             string `json:"type"`
	Provider         string `json:"provider,omitempty"`
	AccessToken      string `json:"accessToken,omitempty"`
	User             any    `json:"user,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	Status           int    `json:"status,omitempty"`
}

// IsSuccess reports whether the message is a *_AUTH_SUCCESS message.
func (m Message) IsSuccess() bool {
	return strings.HasSuffix(m.Type, SuccessSuffix) && len(m.Type) > len(SuccessSuffix)
}

// IsError reports whether the message is a *_AUTH_ERROR message.
func (m Message) IsError() bool {
	return strings.HasSuffix(m.Type, ErrorSuffix) && len(m.Type) > len(ErrorSuffix)
}

// Family returns the type prefix, e.g. "NAVER".
func (m Message) Family() string {
	switch {
	case m.IsSuccess():
		return strings.TrimSuffix(m.Type, SuccessSuffix)
	case m.IsError():
		return strings.TrimSuffix(m.Type, ErrorSuffix)
	default:
		return ""
	}
}

// JSON encodes the message. Angle brackets are escaped so the output can
// be embedded in an inline script.
func (m Message) JSON() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeUser decodes the user payload into v.
func (m Message) DecodeUser(v any) error {
	if m.User == nil {
		return ErrUnknownMessage
	}
	raw, err := json.Marshal(m.User)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
