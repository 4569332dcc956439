package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Args holds validated, type-coerced arguments for one invocation.
// Values are string, int, float64, bool, []string or []int according to the
// declared ParamType.
type Args struct {
	values map[string]any
}

// NewArgs wraps already-typed values without validation.
func NewArgs(values map[string]any) Args {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return Args{values: out}
}

// Has reports whether name was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Get returns the raw value for name.
func (a Args) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// String returns a string argument or "".
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Int returns an integer argument or 0.
func (a Args) Int(name string) int {
	i, _ := a.values[name].(int)
	return i
}

// Float returns a number argument or 0.
func (a Args) Float(name string) float64 {
	f, _ := a.values[name].(float64)
	return f
}

// Bool returns a boolean argument or false.
func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Strings returns a string_list argument or nil.
func (a Args) Strings(name string) []string {
	s, _ := a.values[name].([]string)
	return s
}

// Ints returns an integer_list argument or nil.
func (a Args) Ints(name string) []int {
	i, _ := a.values[name].([]int)
	return i
}

// Map returns a copy of all values.
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Validate checks raw against the ordered parameter list: every required
// parameter present, every value coercible to its declared type, no unknown
// names. Optional parameters that are absent take their Default when set.
func Validate(params []Param, raw map[string]any) (Args, error) {
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Name] = true
	}
	unknown := make([]string, 0)
	for name := range raw {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Args{}, &CommandError{
			Code:    CodeInvalidArgument,
			Message: fmt.Sprintf("Unknown parameter '%s'", unknown[0]),
			Param:   unknown[0],
		}
	}

	values := make(map[string]any, len(params))
	for _, p := range params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if !p.Optional {
				return Args{}, &CommandError{
					Code:    CodeInvalidArgument,
					Message: fmt.Sprintf("Missing required parameter '%s'", p.Name),
					Param:   p.Name,
				}
			}
			if p.Default != nil {
				values[p.Name] = p.Default
			}
			continue
		}

		coerced, ok := coerce(v, p.Type)
		if !ok {
			return Args{}, &CommandError{
				Code:    CodeInvalidArgument,
				Message: fmt.Sprintf("Invalid value for parameter '%s': expected %s", p.Name, typeLabel(p.Type)),
				Param:   p.Name,
			}
		}
		if len(p.Enum) > 0 {
			s, _ := coerced.(string)
			if !containsFold(p.Enum, s) {
				return Args{}, &CommandError{
					Code:    CodeInvalidArgument,
					Message: fmt.Sprintf("Invalid value for parameter '%s': must be one of %s", p.Name, strings.Join(p.Enum, ", ")),
					Param:   p.Name,
				}
			}
			coerced = strings.ToLower(s)
		}
		values[p.Name] = coerced
	}
	return NewArgs(values), nil
}

func typeLabel(t ParamType) string {
	switch t {
	case TypeStringList:
		return "list of strings"
	case TypeIntegerList:
		return "list of integers"
	default:
		return string(t)
	}
}

func containsFold(options []string, s string) bool {
	for _, o := range options {
		if strings.EqualFold(o, s) {
			return true
		}
	}
	return false
}

func coerce(v any, t ParamType) (any, bool) {
	switch t {
	case TypeString:
		return toString(v)
	case TypeInteger:
		return toInt(v)
	case TypeNumber:
		return toFloat(v)
	case TypeBoolean:
		return toBool(v)
	case TypeStringList:
		return toList(v, toString, func(out []any) any {
			s := make([]string, len(out))
			for i := range out {
				s[i] = out[i].(string)
			}
			return s
		})
	case TypeIntegerList:
		return toList(v, toInt, func(out []any) any {
			s := make([]int, len(out))
			for i := range out {
				s[i] = out[i].(int)
			}
			return s
		})
	}
	return nil, false
}

func toString(v any) (any, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return nil, false
}

func toInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return nil, false
}

func toFloat(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return nil, false
}

func toBool(v any) (any, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed, true
		}
	}
	return nil, false
}

// toList accepts a JSON array, a typed slice, a comma-separated string or a
// single scalar.
func toList(v any, elem func(any) (any, bool), finish func([]any) any) (any, bool) {
	var items []any
	switch l := v.(type) {
	case []any:
		items = l
	case []string:
		items = make([]any, len(l))
		for i := range l {
			items[i] = l[i]
		}
	case []int:
		items = make([]any, len(l))
		for i := range l {
			items[i] = l[i]
		}
	case string:
		for _, part := range strings.Split(l, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	default:
		items = []any{v}
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		c, ok := elem(item)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return finish(out), true
}
