package codec

import (
	"errors"
	"fmt"
	"io"

	"resourcegraph/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML snapshots
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse reads a snapshot. An empty document is an empty snapshot.
func (c *YAMLCodec) Parse(r io.Reader) ([]*domain.Resource, error) {
	var snap Snapshot
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return normalize(snap.Resources), nil
}

// Export writes resources as a YAML snapshot
func (c *YAMLCodec) Export(resources []*domain.Resource, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if resources == nil {
		resources = []*domain.Resource{}
	}
	if err := encoder.Encode(&Snapshot{Resources: resources}); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
