package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ResourceIDSeparator separates kind and name in a resource id
	ResourceIDSeparator = ":"
	// MaxResourceIDPartLength bounds the length of kind and name
	MaxResourceIDPartLength = 255
	// DefaultCacheNamespace is used when a cache key has no namespace
	DefaultCacheNamespace = "global"
)

// ErrInvalidResourceID is returned when a resource id fails validation
var ErrInvalidResourceID = errors.New("invalid resource id")

const invalidIDChars = `<>"|?*\`

// ResourceID is a validated (kind, name) pair
type ResourceID struct {
	Kind ResourceKind
	Name string
}

// NewResourceID validates and builds a ResourceID. Kind and name are trimmed.
func NewResourceID(kind, name string) (ResourceID, error) {
	kind = strings.TrimSpace(kind)
	name = strings.TrimSpace(name)

	if kind == "" {
		return ResourceID{}, fmt.Errorf("%w: empty kind", ErrInvalidResourceID)
	}
	if name == "" {
		return ResourceID{}, fmt.Errorf("%w: empty name", ErrInvalidResourceID)
	}
	if strings.Contains(kind, ResourceIDSeparator) {
		return ResourceID{}, fmt.Errorf("%w: kind %q contains separator", ErrInvalidResourceID, kind)
	}
	if err := validateIDPart("kind", kind); err != nil {
		return ResourceID{}, err
	}
	if err := validateIDPart("name", name); err != nil {
		return ResourceID{}, err
	}

	return ResourceID{Kind: ResourceKind(kind), Name: name}, nil
}

func validateIDPart(field, value string) error {
	if len(value) > MaxResourceIDPartLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidResourceID, field, MaxResourceIDPartLength)
	}
	for _, r := range value {
		if isInvalidIDRune(r) {
			return fmt.Errorf("%w: %s contains invalid character %q", ErrInvalidResourceID, field, r)
		}
	}
	return nil
}

func isInvalidIDRune(r rune) bool {
	return r < 0x20 || r == 0x7f || strings.ContainsRune(invalidIDChars, r)
}

// TryNewResourceID is NewResourceID without the error detail
func TryNewResourceID(kind, name string) (ResourceID, bool) {
	id, err := NewResourceID(kind, name)
	return id, err == nil
}

// ParseID parses "kind:name", splitting on the first separator
func ParseID(s string) (ResourceID, error) {
	if s == "" {
		return ResourceID{}, fmt.Errorf("%w: empty id", ErrInvalidResourceID)
	}
	idx := strings.Index(s, ResourceIDSeparator)
	switch {
	case idx < 0:
		return ResourceID{}, fmt.Errorf("%w: %q has no separator", ErrInvalidResourceID, s)
	case idx == 0:
		return ResourceID{}, fmt.Errorf("%w: %q has no kind", ErrInvalidResourceID, s)
	case idx == len(s)-1:
		return ResourceID{}, fmt.Errorf("%w: %q has no name", ErrInvalidResourceID, s)
	}
	return NewResourceID(s[:idx], s[idx+1:])
}

// TryParseID is ParseID without the error detail
func TryParseID(s string) (ResourceID, bool) {
	id, err := ParseID(s)
	return id, err == nil
}

// FromResourceName converts a ResourceName, reporting false when it is incomplete or invalid
func FromResourceName(n ResourceName) (ResourceID, bool) {
	return TryNewResourceID(string(n.Kind), n.Name)
}

// String returns "kind:name"
func (id ResourceID) String() string {
	return string(id.Kind) + ResourceIDSeparator + id.Name
}

// ResourceName converts back to the plain name pair
func (id ResourceID) ResourceName() ResourceName {
	return ResourceName{Kind: id.Kind, Name: id.Name}
}

// Equal compares two ids
func (id ResourceID) Equal(other ResourceID) bool {
	return id.Kind == other.Kind && id.Name == other.Name
}

// EqualString compares against a "kind:name" string. Unparseable strings are never equal.
func (id ResourceID) EqualString(s string) bool {
	other, ok := TryParseID(s)
	return ok && id.Equal(other)
}

// CacheKey returns "ns:kind:name". An empty namespace becomes "global".
func (id ResourceID) CacheKey(ns string) string {
	if strings.TrimSpace(ns) == "" {
		ns = DefaultCacheNamespace
	}
	return ns + ResourceIDSeparator + id.String()
}

// IsKind reports an exact kind match
func (id ResourceID) IsKind(k ResourceKind) bool {
	return id.Kind == k
}

// KindContains reports whether the kind contains sub, ignoring case
func (id ResourceID) KindContains(sub string) bool {
	return strings.Contains(strings.ToLower(string(id.Kind)), strings.ToLower(sub))
}

// SanitizeName replaces characters that are not allowed in ids with "_" and trims the result
func SanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isInvalidIDRune(r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
