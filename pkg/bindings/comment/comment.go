package comment

import (
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

const (
	OpcodeText      = 0x00000000
	OpcodeEncrypted = 0x2167da4b
)

// Build returns a text comment body: a zero opcode followed by the snake-encoded text.
func Build(text string) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreUInt(OpcodeText, 32); err != nil {
		return nil, fmt.Errorf("failed to store comment opcode: %w", err)
	}
	if err := b.StoreStringSnake(text); err != nil {
		return nil, fmt.Errorf("failed to store comment text: %w", err)
	}
	return b.EndCell(), nil
}

// Parse reads a text comment. Cells that carry another opcode are rejected.
func Parse(c *cell.Cell) (string, error) {
	if c == nil {
		return "", errors.New("empty comment body")
	}
	s := c.BeginParse()
	if s.BitsLeft() < 32 {
		return "", errors.New("comment body is too short")
	}
	op, err := s.LoadUInt(32)
	if err != nil {
		return "", fmt.Errorf("failed to load opcode: %w", err)
	}
	if op != OpcodeText {
		return "", fmt.Errorf("not a text comment: opcode 0x%08x", op)
	}
	text, err := s.LoadStringSnake()
	if err != nil {
		return "", fmt.Errorf("failed to load comment text: %w", err)
	}
	return text, nil
}
