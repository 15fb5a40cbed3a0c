package filter

import (
	"strings"
)

// Key is a parsed input key: an optional relation path, an optional group
// id, and the leaf field name.
//
//	"name"           → {Name: "name"}
//	"0:name"         → {Group: "0", Name: "name"}
//	"profile.01:age" → {Path: "profile", Group: "01", Name: "age"}
type Key struct {
	Path  string
	Group string
	Name  string
}

// Field returns the relation-qualified field path.
func (k Key) Field() string {
	if k.Path == "" {
		return k.Name
	}
	return k.Path + "." + k.Name
}

// ParseKey splits a raw key on its last "." into relation path and leaf,
// then splits the leaf on its first ":" into group digits and name.
func ParseKey(raw string) (Key, error) {
	var k Key

	leaf := raw
	if i := strings.LastIndex(raw, "."); i >= 0 {
		k.Path = raw[:i]
		leaf = raw[i+1:]
		for _, segment := range strings.Split(k.Path, ".") {
			if segment == "" {
				return Key{}, newKeyInvalidError(raw, "")
			}
		}
	}

	if group, name, found := strings.Cut(leaf, ":"); found {
		if !isGroup(group) || group == "" {
			return Key{}, newKeyInvalidError(raw, "")
		}
		k.Group = group
		leaf = name
	}

	if leaf == "" {
		return Key{}, newKeyInvalidError(raw, "")
	}
	k.Name = leaf
	return k, nil
}

// BuildKey is the exact inverse of ParseKey.
func BuildKey(k Key) string {
	var sb strings.Builder
	if k.Path != "" {
		sb.WriteString(k.Path)
		sb.WriteByte('.')
	}
	if k.Group != "" {
		sb.WriteString(k.Group)
		sb.WriteByte(':')
	}
	sb.WriteString(k.Name)
	return sb.String()
}

// isGroup reports whether s consists only of ASCII digits.
func isGroup(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
