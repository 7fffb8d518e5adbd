package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface representing the value types allowed in an
// args document. Only IRNull, IRString, IRInt, IRUint, IRBool, IRArray and
// IRObject implement it. There is no float type: amounts travel as decimal
// strings and counters as integers.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a JSON null value.
// Used for optional fields the chain reports as absent (e.g. a key allowance).
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents a signed integer value.
type IRInt int64

func (IRInt) irValue() {}

// IRUint represents an unsigned 64-bit integer value.
// Gas amounts and key nonces are u64 on chain and may exceed int64.
type IRUint uint64

func (IRUint) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// IRPair represents a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair.
// Example: NewIRObjectFromPairs(O("deposit", IRString("1")), O("gas", IRUint(30)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObjectFromPairs creates an IRObject from typed key-value pairs.
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// StringArray converts a string slice to an IRArray of IRString.
// A nil slice yields an empty array, never null.
func StringArray(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// Equal prefix: shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// AsString returns the string held by v.
func AsString(v IRValue) (string, bool) {
	s, ok := v.(IRString)
	return string(s), ok
}

// AsUint64 returns the non-negative integer held by v.
// Decoding JSON yields IRInt for values that fit int64, so both integer
// types are accepted.
func AsUint64(v IRValue) (uint64, bool) {
	switch n := v.(type) {
	case IRUint:
		return uint64(n), true
	case IRInt:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

// UnmarshalJSON implements json.Unmarshaler for IRObject.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(IRObject, len(raw))
	for k, v := range raw {
		val, err := unmarshalIRValue(v)
		if err != nil {
			return fmt.Errorf("IRObject key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for IRArray.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*arr = make(IRArray, len(raw))
	for i, v := range raw {
		val, err := unmarshalIRValue(v)
		if err != nil {
			return fmt.Errorf("IRArray index %d: %w", i, err)
		}
		(*arr)[i] = val
	}
	return nil
}

// unmarshalIRValue decodes a JSON value into the appropriate IRValue type.
func unmarshalIRValue(data []byte) (IRValue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return IRString(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return IRBool(b), nil

	case 'n':
		return IRNull{}, nil

	case '[':
		var arr IRArray
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		return arr, nil

	case '{':
		var obj IRObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return numberToIRValue(n)
	}
}

// numberToIRValue converts a JSON number to IRInt, or IRUint when it only
// fits the unsigned range. Floats are rejected.
func numberToIRValue(n json.Number) (IRValue, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return nil, fmt.Errorf("floats are not allowed in args documents: %s", s)
	}
	if i, err := n.Int64(); err == nil {
		return IRInt(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return IRUint(u), nil
	}
	return nil, fmt.Errorf("number out of uint64 range: %s", s)
}

// MarshalJSON implements json.Marshaler for IRObject using canonical encoding.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return marshalCanonicalObject(obj)
}

// MarshalJSON implements json.Marshaler for IRArray using canonical encoding.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	return marshalCanonicalArray(arr)
}

// UnmarshalIRValue deserializes JSON into an IRValue.
// Integers are kept exact via json.Number; floats are rejected.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return convertToIRValue(raw)
}

// convertToIRValue recursively converts a decoded Go value to an IRValue.
func convertToIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		return numberToIRValue(val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
