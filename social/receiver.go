package social

import (
	"encoding/json"
	"strings"
)

// Receiver is the opener side of the popup boundary. Messages are only
// accepted from an allow-listed origin.
type Receiver struct {
	origins  map[string]struct{}
	families map[string]struct{}
}

// NewReceiver creates a receiver that trusts exactly the given origins.
func NewReceiver(origins ...string) *Receiver {
	r := &Receiver{origins: map[string]struct{}{}}
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			r.origins[o] = struct{}{}
		}
	}
	return r
}

// Expect restricts accepted messages to the given families ("NAVER",
// "INSTAGRAM", ...). Without it any *_AUTH_SUCCESS/*_AUTH_ERROR type is
// accepted.
func (r *Receiver) Expect(families ...string) *Receiver {
	if r.families == nil {
		r.families = map[string]struct{}{}
	}
	for _, f := range families {
		r.families[MessagePrefix(f)] = struct{}{}
	}
	return r
}

// Trusts reports whether origin is allow-listed.
func (r *Receiver) Trusts(origin string) bool {
	_, ok := r.origins[normalizeOrigin(origin)]
	return ok
}

// Receive validates origin before looking at data, then decodes a Message.
func (r *Receiver) Receive(origin string, data []byte) (Message, error) {
	if !r.Trusts(origin) {
		return Message{}, withMeta(ErrUntrustedOrigin, nil, map[string]any{"origin": origin})
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, withMeta(ErrUnknownMessage, err, nil)
	}

	if !msg.IsSuccess() && !msg.IsError() {
		return Message{}, withMeta(ErrUnknownMessage, nil, map[string]any{"type": msg.Type})
	}

	if r.families != nil {
		if _, ok := r.families[msg.Family()]; !ok {
			return Message{}, withMeta(ErrUnknownMessage, nil, map[string]any{"type": msg.Type})
		}
	}

	return msg, nil
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}
