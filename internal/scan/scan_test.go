package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableID_Shapes(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"full url", "https://menu.example.com/t?tableId=7", "7"},
		{"url extra params", "https://menu.example.com/t?lang=sq&tableId=12&v=2", "12"},
		{"bare fragment", "tableId=7", "7"},
		{"fragment with trailing params", "tableId=7&foo=1", "7"},
		{"fragment with anchor", "app://open#tableId=9#x", "9"},
		{"raw token", "7", "7"},
		{"raw token with noise", "7!!", "7"},
		{"raw alnum token", "T-14", "T14"},
		{"surrounding whitespace", "  tableId=3  ", "3"},
		{"punctuated param value", "tableId=A.5", "A5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TableID(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTableID_NoID(t *testing.T) {
	for _, input := range []string{"", "   ", "?!*", "=&#?"} {
		_, err := TableID(input)
		assert.ErrorIs(t, err, ErrNoTableID, "input %q", input)
	}
}

// Different QR generators emit visually identical ids with different
// codepoint compositions; they must extract to the same string.
func TestTableID_Normalizes(t *testing.T) {
	composed, err := TableID("café")
	require.NoError(t, err)
	decomposed, err := TableID("café")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}
