package codec

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"max uint64", uint64(18446744073709551615), "18446744073709551615"},
		{"bump", uint8(254), "254"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", []any{1, "a", false}, `[1,"a",false]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshal_SortedKeys(t *testing.T) {
	out, err := Marshal(Object{"zebra": 1, "alpha": 2, "beta": Object{"y": 1, "x": 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(out))
}

func TestMarshal_UTF16Ordering(t *testing.T) {
	// U+FF61 sorts after U+1F600 in UTF-8 but before it in UTF-16.
	out, err := Marshal(Object{"\U0001F600": 1, "\uff61": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uff61\":2}", string(out))
}

func TestMarshal_RejectsFloatsAndNull(t *testing.T) {
	_, err := Marshal(1.5)
	assert.Error(t, err)

	_, err = Marshal(nil)
	assert.Error(t, err)

	_, err = Marshal(Object{"a": nil})
	assert.Error(t, err)
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	out, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(out))
}

func TestMarshal_NFC(t *testing.T) {
	a, err := Marshal("caf\u00e9")
	require.NoError(t, err)
	b, err := Marshal("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshal_LineSeparators(t *testing.T) {
	out, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))

	out, err = Marshal(`literal \u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"literal \\u2028"`, string(out))
}

type sample struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	HasVoted bool   `json:"has_voted"`
	Start    int64  `json:"start"`
}

func TestEncode_Struct(t *testing.T) {
	out, err := Encode(sample{ID: 18446744073709551615, Name: "Q?", HasVoted: true, Start: -5})
	require.NoError(t, err)
	assert.Equal(t, `{"has_voted":true,"id":18446744073709551615,"name":"Q?","start":-5}`, string(out))
}

func TestEncode_Deterministic(t *testing.T) {
	s := sample{ID: 7, Name: "x"}
	a, err := Encode(s)
	require.NoError(t, err)
	b, err := Encode(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	var s sample
	err := Decode([]byte(`{"id":1,"name":"a","has_voted":false,"start":0,"extra":1}`), &s)
	assert.Error(t, err)

	err = Decode([]byte(`{"id":18446744073709551615,"name":"a","has_voted":true,"start":3}`), &s)
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), s.ID)
	assert.True(t, s.HasVoted)
}

func TestDecodeObject_KeepsLargeIntegers(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"id":18446744073709551615,"votes":1000000,"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("18446744073709551615"), obj["id"])
	assert.Equal(t, "1000000", fmt.Sprint(obj["votes"]))
	assert.Equal(t, true, obj["ok"])

	_, err = DecodeObject([]byte(`[1,2]`))
	assert.Error(t, err)
}
