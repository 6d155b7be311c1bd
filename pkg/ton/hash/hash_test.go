package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaCRC32(t *testing.T) {
	testCases := []struct {
		name     string
		schema   string
		expected uint32
	}{
		{
			name:     "nft transfer",
			schema:   "transfer#5fcc3d14 query_id:uint64 new_owner:MsgAddress = InternalMsgBody;",
			expected: 0x6203568e,
		},
		{
			name:     "anonymous constructor",
			schema:   "message#_ text:string = Message;",
			expected: 0x2eccd0c1,
		},
		{
			name:     "whitespace is normalized",
			schema:   "  comment#00000000\n\ttext:SnakeString   = Comment; ",
			expected: 0x01bff855,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SchemaCRC32(tc.schema))
		})
	}
}
