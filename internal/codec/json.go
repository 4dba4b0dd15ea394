package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"resourcegraph/internal/domain"
)

// JSONCodec handles JSON snapshots. Parse also accepts a bare array of resources.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a snapshot object or a bare resource array
func (c *JSONCodec) Parse(r io.Reader) ([]*domain.Resource, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	decoder := json.NewDecoder(br)
	if first == '[' {
		var resources []*domain.Resource
		if err := decoder.Decode(&resources); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return normalize(resources), nil
	}

	var snap Snapshot
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return normalize(snap.Resources), nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// Export writes resources as an indented JSON snapshot
func (c *JSONCodec) Export(resources []*domain.Resource, w io.Writer) error {
	if resources == nil {
		resources = []*domain.Resource{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Snapshot{Resources: resources}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
