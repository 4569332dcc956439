// Package response defines the canonical response shapes returned by every
// dispatched command and the normalizer that classifies raw results into them.
//
// Exactly one of three shapes is produced per invocation:
//
//	{"success": true, ...}                         Success
//	[{"title":..,"id":..,"type":..,"year":..}, ..] AmbiguousMatches
//	{"error": "message"}                           Error
package response

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which canonical variant a Response holds.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindAmbiguous
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAmbiguous:
		return "ambiguous"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// SuccessKey is the indicator field present in every Success payload.
const SuccessKey = "success"

// Fields is the payload of a Success response.
type Fields = map[string]any

// Match is the lightweight identity record used for ambiguous title lookups.
type Match struct {
	Title string `json:"title"`
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Year  int    `json:"year"`
}

// Identifiable is implemented by upstream entities that can be reduced to a Match.
type Identifiable interface {
	Identity() Match
}

// Response is a tagged union over the three canonical shapes. The zero value
// is an empty Success.
type Response struct {
	kind    Kind
	fields  Fields
	matches []Match
	message string
}

// Success builds a Success response. The success indicator is always set to true.
func Success(fields Fields) Response {
	out := make(Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[SuccessKey] = true
	return Response{kind: KindSuccess, fields: out}
}

// Ambiguous builds an AmbiguousMatches response preserving the given order.
// Fewer than two candidates are not ambiguous: none is the no-match Error and
// one is that candidate's Success.
func Ambiguous(matches []Match) Response {
	if len(matches) < 2 {
		return fromCandidates(matches)
	}
	out := make([]Match, len(matches))
	copy(out, matches)
	return Response{kind: KindAmbiguous, matches: out}
}

// Error builds an Error response.
func Error(message string) Response {
	if message == "" {
		message = "Unknown error"
	}
	return Response{kind: KindError, message: message}
}

// Errorf builds an Error response from a format string.
func Errorf(format string, args ...any) Response {
	return Error(fmt.Sprintf(format, args...))
}

// Kind returns the variant held by r.
func (r Response) Kind() Kind {
	if r.kind == 0 {
		return KindSuccess
	}
	return r.kind
}

// IsError reports whether r is the Error variant.
func (r Response) IsError() bool { return r.kind == KindError }

// Message returns the error message for Error responses and "" otherwise.
func (r Response) Message() string { return r.message }

// Fields returns a copy of the Success payload, or nil for other variants.
func (r Response) Fields() Fields {
	if r.Kind() != KindSuccess {
		return nil
	}
	out := make(Fields, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}
	out[SuccessKey] = true
	return out
}

// Field returns a single Success payload value.
func (r Response) Field(name string) (any, bool) {
	if r.Kind() != KindSuccess {
		return nil, false
	}
	if name == SuccessKey {
		return true, true
	}
	v, ok := r.fields[name]
	return v, ok
}

// Matches returns a copy of the candidates of an AmbiguousMatches response.
func (r Response) Matches() []Match {
	if r.kind != KindAmbiguous {
		return nil
	}
	out := make([]Match, len(r.matches))
	copy(out, r.matches)
	return out
}

// MarshalJSON renders the canonical wire shape.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind() {
	case KindAmbiguous:
		if r.matches == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.matches)
	case KindError:
		return json.Marshal(map[string]string{"error": r.message})
	default:
		return json.Marshal(r.Fields())
	}
}

// UnmarshalJSON classifies any JSON document into a Response.
func (r *Response) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("response: invalid JSON")
	}
	*r = Normalize(json.RawMessage(data))
	return nil
}

// JSON returns the canonical JSON text of r. Encoding failures surface as an
// Error response so callers always get a well-formed document.
func (r Response) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": "Failed to encode response: " + err.Error()})
	}
	return string(data)
}
