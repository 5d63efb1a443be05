package rules

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		wantKind Kind
		wantErr  bool
	}{
		{name: "string", raw: "Severe fatigue", wantKind: KindText},
		{name: "bool", raw: true, wantKind: KindBool},
		{name: "int", raw: 42, wantKind: KindNumeric},
		{name: "float", raw: 27.5, wantKind: KindNumeric},
		{name: "string slice", raw: []string{"dairy", "gluten"}, wantKind: KindList},
		{name: "any slice of strings", raw: []any{"nuts", "soy"}, wantKind: KindList},
		{name: "structured", raw: map[string]any{"systolic": "130", "diastolic": "85"}, wantKind: KindStructured},
		{name: "nil", raw: nil, wantErr: true},
		{name: "nested map", raw: map[string]any{"inner": map[string]any{"x": 1}}, wantErr: true},
		{name: "mixed list", raw: []any{"ok", 3}, wantErr: true},
		{name: "struct", raw: struct{}{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseField("topic", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, "topic", f.Topic)
		})
	}
}

func TestParseFieldNormalizesText(t *testing.T) {
	f, err := ParseField("mood", "  Feeling  ANXIOUS!!  ")
	require.NoError(t, err)
	assert.Equal(t, "feeling anxious!", f.Text)
	assert.Equal(t, "  Feeling  ANXIOUS!!  ", f.Raw, "raw form preserved for provenance")
}

func TestParseNumericPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{input: "5.7 %", want: 5.7, ok: true},
		{input: "98 mg/dL", want: 98, ok: true},
		{input: "  -2.5 units", want: -2.5, ok: true},
		{input: "+130", want: 130, ok: true},
		{input: "normal", ok: false},
		{input: "", ok: false},
		{input: "mg/dL 98", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseNumericPrefix(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.input)
		}
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	f, err := ParseField("history", string(long))
	require.NoError(t, err)
	assert.Len(t, f.Snippet(), 80)
}

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	f, err := ParseField("history", strings.Repeat("é", 100))
	require.NoError(t, err)

	snippet := f.Snippet()
	assert.True(t, utf8.ValidString(snippet), "truncation never splits a rune")
	assert.Equal(t, 80, utf8.RuneCountInString(snippet))
}
