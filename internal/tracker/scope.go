package tracker

import "fmt"

// Scope is the minimal class of regeneration work a set of changes implies.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeMetadataOnly
	ScopeReadmeOnly
	ScopeAPIOnly
	ScopeFull
)

// String returns the string representation of the Scope
func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "none"
	case ScopeMetadataOnly:
		return "metadata-only"
	case ScopeReadmeOnly:
		return "readme-only"
	case ScopeAPIOnly:
		return "api-only"
	case ScopeFull:
		return "full"
	default:
		return "unknown"
	}
}

// MarshalText encodes the scope by name.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseScope parses a scope name.
func ParseScope(name string) (Scope, error) {
	for s := ScopeNone; s <= ScopeFull; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return ScopeNone, fmt.Errorf("unknown regeneration scope %q", name)
}

// DetermineRegenerationScope applies a fixed precedence: readme and source
// together need a full rebuild, then source alone, readme alone and
// metadata alone.
func DetermineRegenerationScope(categories CategorySet) Scope {
	readme := categories.Has(CategoryReadme)
	source := categories.Has(CategorySource)
	switch {
	case readme && source:
		return ScopeFull
	case source:
		return ScopeAPIOnly
	case readme:
		return ScopeReadmeOnly
	case categories.Has(CategoryMetadata):
		return ScopeMetadataOnly
	default:
		return ScopeNone
	}
}
