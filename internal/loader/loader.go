// Package loader reads resource snapshot files from disk.
package loader

import (
	"fmt"
	"io"
	"os"

	"resourcegraph/internal/codec"
	"resourcegraph/internal/domain"
)

// LoadFile reads a snapshot, choosing the codec from the file extension
func LoadFile(path string) ([]*domain.Resource, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	resources, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resources, nil
}

// Load parses a snapshot in the named format
func Load(r io.Reader, format string) ([]*domain.Resource, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}
	return c.Parse(r)
}

// WriteFile writes resources to path in the format implied by its extension
func WriteFile(path string, resources []*domain.Resource) error {
	c, err := codec.ForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := c.Export(resources, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
