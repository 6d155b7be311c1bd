package hash

import (
	"hash/crc32"
	"strings"
)

var ieeeTable = crc32.MakeTable(crc32.IEEE)

// SchemaCRC32 is the schema_crc of a signData cell payload: CRC32-IEEE of the
// TL-B schema text with surrounding whitespace trimmed and inner runs of
// whitespace collapsed to one space.
func SchemaCRC32(schema string) uint32 {
	normalized := strings.Join(strings.Fields(schema), " ")
	return crc32.Checksum([]byte(normalized), ieeeTable)
}
