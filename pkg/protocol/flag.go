package protocol

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag is a tri-state boolean for loosely typed handoff fields. Role
// payloads arrive from language-model output and may carry booleans as
// true, "true", "1", 1, or simply omit the field. Flag normalizes all of
// these once, at the payload boundary, so routing logic never inspects
// raw payload values.
type Flag int

// Flag states. The zero value is FlagUnset so omitted fields decode to
// "no signal" rather than false.
const (
	FlagUnset Flag = iota
	FlagTrue
	FlagFalse
)

// True reports whether the flag was explicitly set to a truthy value.
func (f Flag) True() bool { return f == FlagTrue }

// False reports whether the flag was explicitly set to a falsy value.
// An unset flag is not false: absence of a signal is not a rejection.
func (f Flag) False() bool { return f == FlagFalse }

// IsSet reports whether the flag carries an explicit value.
func (f Flag) IsSet() bool { return f != FlagUnset }

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "unset"
	}
}

// ParseFlag is the single tolerant parser for boolean-like payload values.
// It accepts bool, string, integer and float representations. Unrecognized
// values parse as FlagUnset.
func ParseFlag(v any) Flag {
	switch t := v.(type) {
	case bool:
		if t {
			return FlagTrue
		}
		return FlagFalse
	case string:
		return parseFlagString(t)
	case int:
		return parseFlagInt(int64(t))
	case int64:
		return parseFlagInt(t)
	case float64:
		return parseFlagInt(int64(t))
	default:
		return FlagUnset
	}
}

func parseFlagString(s string) Flag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return FlagTrue
	case "false", "0", "no":
		return FlagFalse
	default:
		return FlagUnset
	}
}

func parseFlagInt(n int64) Flag {
	switch n {
	case 1:
		return FlagTrue
	case 0:
		return FlagFalse
	default:
		return FlagUnset
	}
}

// MarshalJSON encodes set flags as plain booleans and unset flags as null.
func (f Flag) MarshalJSON() ([]byte, error) {
	switch f {
	case FlagTrue:
		return []byte("true"), nil
	case FlagFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts booleans, quoted strings, and bare numbers.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = FlagUnset
		return nil
	}
	s := string(data)
	if s[0] == '"' && len(s) >= 2 {
		*f = parseFlagString(s[1 : len(s)-1])
		return nil
	}
	*f = parseFlagString(s)
	return nil
}

// UnmarshalYAML accepts the same representations as UnmarshalJSON for
// task-spec files.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	*f = parseFlagString(node.Value)
	return nil
}
