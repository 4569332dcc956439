package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"reflect"
	"strconv"
	"strings"
)

// NoMatchesMessage is the Error message for an empty candidate list.
const NoMatchesMessage = "No matching items found"

var identifiableType = reflect.TypeOf((*Identifiable)(nil)).Elem()

// Normalize maps any raw invocation result onto exactly one canonical variant.
//
// Classification order: existing responses are returned unchanged, errors
// become Error, candidate collections become AmbiguousMatches when they hold
// more than one entry, objects become Success unless they only carry an error
// indicator. JSON documents are decoded first, so normalizing the serialized
// form of a canonical response yields the same shape.
func Normalize(raw any) Response {
	if isNilPointer(raw) {
		return Success(nil)
	}
	switch v := raw.(type) {
	case nil:
		return Success(nil)
	case Response:
		return v
	case *Response:
		if v == nil {
			return Success(nil)
		}
		return *v
	case error:
		return FromError(v)
	case []Match:
		return fromCandidates(v)
	case Identifiable:
		return fromMatch(v.Identity())
	case map[string]any:
		return fromObject(v)
	case []any:
		return fromArray(v)
	case json.RawMessage:
		return fromJSON(v)
	case []byte:
		return fromJSON(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			if json.Valid([]byte(trimmed)) {
				return fromJSON([]byte(trimmed))
			}
		}
		return Success(Fields{"message": v})
	}
	return fromValue(raw)
}

// isNilPointer reports a typed nil pointer hiding in a non-nil interface.
func isNilPointer(raw any) bool {
	rv := reflect.ValueOf(raw)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// FromError converts a failure into an Error response carrying its message.
func FromError(err error) Response {
	if err == nil {
		return Success(nil)
	}
	var coded interface{ Code() string }
	if msg := err.Error(); msg == "" && errors.As(err, &coded) {
		return Error(coded.Code())
	}
	return Error(err.Error())
}

func fromCandidates(matches []Match) Response {
	switch len(matches) {
	case 0:
		return Error(NoMatchesMessage)
	case 1:
		return fromMatch(matches[0])
	default:
		return Ambiguous(matches)
	}
}

func fromMatch(m Match) Response {
	return Success(Fields{
		"title": m.Title,
		"id":    m.ID,
		"type":  m.Type,
		"year":  m.Year,
	})
}

func fromObject(obj map[string]any) Response {
	errVal, hasErr := obj["error"]
	successVal, hasSuccess := obj[SuccessKey]
	succeeded, isBool := successVal.(bool)

	// A non-empty error string wins over any success indicator.
	if msg, ok := errVal.(string); hasErr && ok && msg != "" {
		return Error(msg)
	}
	if hasSuccess && isBool && !succeeded {
		if msg, ok := obj["message"].(string); ok && msg != "" {
			return Error(msg)
		}
		return Error("Operation failed")
	}
	if hasErr {
		obj = maps.Clone(obj)
		delete(obj, "error")
	}
	return Success(obj)
}

func fromArray(items []any) Response {
	if len(items) == 0 {
		return Success(Fields{"items": items, "count": 0})
	}
	matches := make([]Match, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return Success(Fields{"items": items, "count": len(items)})
		}
		m, ok := matchFromObject(obj)
		if !ok {
			return Success(Fields{"items": items, "count": len(items)})
		}
		matches = append(matches, m)
	}
	// An already-serialized candidate array stays a candidate array.
	return Ambiguous(matches)
}

// matchFromObject accepts objects with exactly the identity record keys.
func matchFromObject(obj map[string]any) (Match, bool) {
	if len(obj) != 4 {
		return Match{}, false
	}
	title, ok := obj["title"].(string)
	if !ok {
		return Match{}, false
	}
	kind, ok := obj["type"].(string)
	if !ok {
		return Match{}, false
	}
	id, ok := toInt(obj["id"])
	if !ok {
		return Match{}, false
	}
	year, ok := toInt(obj["year"])
	if !ok {
		return Match{}, false
	}
	return Match{Title: title, ID: id, Type: kind, Year: year}, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	case nil:
		return 0, true
	}
	return 0, false
}

func fromJSON(data []byte) Response {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return Error("Invalid response from upstream: " + err.Error())
	}
	switch v := decoded.(type) {
	case map[string]any:
		return fromObject(v)
	case []any:
		return fromArray(v)
	case nil:
		return Success(nil)
	default:
		return Success(Fields{"result": v})
	}
}

// fromValue handles typed values: slices of identifiable entities are
// candidate lists, everything else goes through its JSON form.
func fromValue(raw any) Response {
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Type().Elem().Implements(identifiableType) {
			matches := make([]Match, 0, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				item := rv.Index(i).Interface()
				if item == nil || isNilPointer(item) {
					continue
				}
				matches = append(matches, item.(Identifiable).Identity())
			}
			return fromCandidates(matches)
		}
	}
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return fromObject(obj)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Error("Failed to encode result: " + err.Error())
	}
	return fromJSON(data)
}
