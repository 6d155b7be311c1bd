package comment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

func TestBuildParse(t *testing.T) {
	testCases := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "short", text: "thanks for the coffee"},
		{name: "multi cell", text: strings.Repeat("ton ", 100)},
		{name: "unicode", text: "привет 👋"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Build(tc.text)
			require.NoError(t, err)
			got, err := Parse(c)
			require.NoError(t, err)
			assert.Equal(t, tc.text, got)
		})
	}
}

func TestParseRejectsOtherOpcodes(t *testing.T) {
	c := cell.BeginCell().MustStoreUInt(OpcodeEncrypted, 32).EndCell()
	_, err := Parse(c)
	require.ErrorContains(t, err, "not a text comment")

	_, err = Parse(cell.BeginCell().EndCell())
	require.ErrorContains(t, err, "too short")
}
