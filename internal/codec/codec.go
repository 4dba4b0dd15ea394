// Package codec reads and writes resource snapshots.
//
// A snapshot is the runtime's resource listing flattened to the fields the
// graph uses:
//
//	resources:
//	  - name: {kind: rill.runtime.v1.Model, name: orders}
//	    refs:
//	      - {kind: rill.runtime.v1.Source, name: raw_orders}
//
// Kinds may be written short ("Model"); they are expanded to the
// rill.runtime.v1 package on parse.
package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"resourcegraph/internal/domain"
)

// ErrUnknownFormat is returned for an unsupported format or file extension
var ErrUnknownFormat = errors.New("unknown snapshot format")

const runtimeKindPrefix = "rill.runtime.v1."

// Importer parses a resource snapshot
type Importer interface {
	Parse(r io.Reader) ([]*domain.Resource, error)
	Format() string
}

// Exporter writes a resource snapshot
type Exporter interface {
	Export(resources []*domain.Resource, w io.Writer) error
	Format() string
}

// Codec is both
type Codec interface {
	Importer
	Exporter
}

// Snapshot is the document root shared by all formats
type Snapshot struct {
	Resources []*domain.Resource `json:"resources" yaml:"resources"`
}

// ForFormat returns the codec for "yaml", "yml" or "json"
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ForPath picks a codec by file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ForFormat(ext)
}

// ExpandKind turns a short kind like "MetricsView" into its runtime form.
// Kinds that already contain a dot and empty kinds are returned unchanged.
func ExpandKind(kind domain.ResourceKind) domain.ResourceKind {
	k := strings.TrimSpace(string(kind))
	if k == "" || strings.Contains(k, ".") {
		return domain.ResourceKind(k)
	}
	return domain.ResourceKind(runtimeKindPrefix + k)
}

// normalize expands short kinds in place and drops nil entries
func normalize(resources []*domain.Resource) []*domain.Resource {
	out := resources[:0]
	for _, r := range resources {
		if r == nil {
			continue
		}
		r.Name.Kind = ExpandKind(r.Name.Kind)
		for i := range r.Refs {
			r.Refs[i].Kind = ExpandKind(r.Refs[i].Kind)
		}
		out = append(out, r)
	}
	return out
}
