package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"zero", IRInt(0), "0"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"max uint64", IRUint(18446744073709551615), "18446744073709551615"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"null", IRNull{}, "null"},
		{"nil value", nil, "null"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"simple object", IRObject{"a": IRInt(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := IRObject{
		"method_name": IRString("ft_transfer"),
		"args":        IRString("e30="),
		"gas":         IRUint(30000000000000),
		"deposit":     IRString("1"),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"args":"e30=","deposit":"1","gas":30000000000000,"method_name":"ft_transfer"}`, string(result))
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := IRObject{
		"public_key": IRString("ed25519:abc"),
		"access_key": IRObject{
			"permission": IRString("FullAccess"),
			"nonce":      IRUint(0),
		},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"access_key":{"nonce":0,"permission":"FullAccess"},"public_key":"ed25519:abc"}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000 - UTF-16 order differs from UTF-8
	obj := IRObject{
		"\uE000":     IRInt(1), // UTF-16: 0xE000
		"\U00010000": IRInt(2), // UTF-16: 0xD800, 0xDC00 (surrogate pair)
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	expected := "{\"\U00010000\":2,\"\uE000\":1}"
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	obj := IRObject{
		"method_name": IRString("<script>alert('xss')</script>"),
		"args":        IRString("a & b"),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.Contains(t, string(result), "<script>")
	assert.Contains(t, string(result), "a & b")
	assert.NotContains(t, string(result), "\\u003c")
	assert.NotContains(t, string(result), "\\u003e")
	assert.NotContains(t, string(result), "\\u0026")
}

func TestMarshalCanonicalNullAllowed(t *testing.T) {
	obj := IRObject{"allowance": IRNull{}}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"allowance":null}`, string(result))
}

func TestMarshalCanonicalPreservesUnicodeForms(t *testing.T) {
	// Method names are copied through; NFC and NFD spellings stay distinct.
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	result1, err := MarshalCanonical(IRString(composed))
	require.NoError(t, err)

	result2, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)

	assert.NotEqual(t, result1, result2)
	assert.Equal(t, "\""+decomposed+"\"", string(result2))
}

func TestMarshalCanonicalCompactOutput(t *testing.T) {
	obj := IRObject{
		"array": IRArray{IRInt(1), IRInt(2)},
		"bool":  IRBool(true),
		"int":   IRInt(42),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.NotContains(t, string(result), " ")
	assert.NotContains(t, string(result), "\n")
	assert.NotContains(t, string(result), "\t")
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	// Property: MarshalCanonical(Unmarshal(MarshalCanonical(x))) == MarshalCanonical(x)
	testCases := []IRValue{
		IRString("hello"),
		IRInt(42),
		IRUint(18446744073709551615),
		IRBool(true),
		IRNull{},
		IRArray{IRInt(1), IRString("two"), IRBool(false)},
		IRObject{"a": IRInt(1), "b": IRString("test")},
		IRObject{
			"access_key": IRObject{
				"nonce": IRUint(7),
				"permission": IRObject{
					"FunctionCall": IRObject{
						"allowance":    IRNull{},
						"method_names": IRArray{},
						"receiver_id":  IRString("app.near"),
					},
				},
			},
		},
	}

	for _, original := range testCases {
		canonical1, err := MarshalCanonical(original)
		require.NoError(t, err)

		val, err := UnmarshalIRValue(canonical1)
		require.NoError(t, err)

		canonical2, err := MarshalCanonical(val)
		require.NoError(t, err)

		assert.Equal(t, canonical1, canonical2, "canonical marshaling must be idempotent")
	}
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalU2028U2029NotEscaped(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"line separator", "hello\u2028world", "\"hello\u2028world\""},
		{"paragraph separator", "hello\u2029world", "\"hello\u2029world\""},
		{"both", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
			assert.NotContains(t, string(result), `\u2028`)
			assert.NotContains(t, string(result), `\u2029`)
		})
	}
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// Literal backslash followed by "u2028" is text, not an escape.
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "literal backslash-u2028 text",
			input:    `the escape sequence is \u2028`,
			expected: `"the escape sequence is \\u2028"`,
		},
		{
			name:     "literal backslash-u2029 text",
			input:    `the escape sequence is \u2029`,
			expected: `"the escape sequence is \\u2029"`,
		},
		{
			name:     "mixed literal and actual",
			input:    "literal \\u2028 and actual \u2028",
			expected: "\"literal \\\\u2028 and actual \u2028\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"a":1,"b":"test"}`)
	f.Add(`[1,2,3]`)
	f.Add(`"hello"`)
	f.Add(`18446744073709551615`)
	f.Add(`{"allowance":null}`)
	f.Add(`{"nested":{"deep":{"value":123}}}`)

	f.Fuzz(func(t *testing.T, jsonStr string) {
		val, err := UnmarshalIRValue([]byte(jsonStr))
		if err != nil {
			t.Skip()
		}

		canonical1, err := MarshalCanonical(val)
		if err != nil {
			t.Skip()
		}

		val2, err := UnmarshalIRValue(canonical1)
		require.NoError(t, err)

		canonical2, err := MarshalCanonical(val2)
		require.NoError(t, err)

		assert.Equal(t, canonical1, canonical2, "canonical marshaling must be idempotent")
	})
}
